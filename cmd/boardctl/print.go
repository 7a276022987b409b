package main

import (
	"fmt"

	"github.com/fatih/color"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

func printSuccess(format string, a ...any) {
	green.Printf("✓ "+format, a...)
}

func printHeading(format string, a ...any) {
	cyan.Printf(format, a...)
}

func printWarning(format string, a ...any) {
	yellow.Printf(format, a...)
}

func printError(format string, a ...any) {
	red.Printf(format, a...)
}

func printDetail(format string, a ...any) {
	faint.Printf(format, a...)
}

func printLine(format string, a ...any) {
	fmt.Printf(format, a...)
}
