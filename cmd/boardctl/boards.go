package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"boardsync/crud"
	"boardsync/engine"
	"boardsync/store"
)

// newEngine builds an engine over the stored session. Every command that
// talks to the service goes through this.
func newEngine() (*engine.Engine, error) {
	userID, token, err := sessions.Credentials()
	if err != nil {
		return nil, fmt.Errorf("not signed in, run `boardctl login` first: %w", err)
	}
	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	client := crud.New(cfg.GetString(cfgKeyAPIURL), token)
	return engine.New(store.New(), client, userID, nil), nil
}

var boardsCmd = &cobra.Command{
	Use:   "boards [board-id]",
	Short: "List boards, or show one board's columns and tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			if err := eng.LoadBoards(cmd.Context()); err != nil {
				return err
			}
			boards := eng.Store().Boards()
			if len(boards) == 0 {
				printLine("no boards\n")
				return nil
			}
			for _, b := range boards {
				printHeading("%s", b.Title)
				printDetail("  %s  %d members\n", b.ID, len(b.Members))
			}
			return nil
		}

		boardID := args[0]
		if err := eng.LoadBoard(cmd.Context(), boardID); err != nil {
			return err
		}
		if err := sessions.SetLastBoard(boardID); err != nil {
			return err
		}
		printBoard(eng, boardID)
		return nil
	},
}

func printBoard(eng *engine.Engine, boardID string) {
	board, ok := eng.Store().GetBoard(boardID)
	if !ok {
		return
	}
	printHeading("%s\n", board.Title)
	for _, col := range eng.Store().ColumnsInBoard(boardID) {
		tasks := eng.Store().TasksInColumn(col.ID)
		printLine("  %s (%d)\n", col.Title, len(tasks))
		for _, task := range tasks {
			marker := " "
			if task.Completed {
				marker = "✓"
			}
			printLine("    %s %s", marker, task.Title)
			if task.Priority != "" {
				printDetail("  [%s]", task.Priority)
			}
			printLine("\n")
		}
	}
}
