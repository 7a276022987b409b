package main

import (
	"os/signal"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"boardsync/channel"
	"boardsync/domain"
	"boardsync/engine"
)

var watchCmd = &cobra.Command{
	Use:   "watch [board-id]",
	Short: "Follow a board's realtime activity",
	Long: `Follow a board's realtime activity. Edits made by other collaborators
are printed as they happen, and the in-memory board state is kept in sync so
the board summary printed on exit reflects everything that occurred.
Without an argument the last opened board is watched.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}

		boardID := ""
		if len(args) == 1 {
			boardID = args[0]
		} else {
			if boardID, err = sessions.LastBoard(); err != nil {
				return err
			}
			if boardID == "" {
				return errNoBoard
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := eng.LoadBoard(ctx, boardID); err != nil {
			return err
		}
		_ = sessions.SetLastBoard(boardID)

		_, token, err := sessions.Credentials()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configFile)
		if err != nil {
			return err
		}
		client := channel.New(cfg.GetString(cfgKeyWSURL), token,
			channel.OnDisconnect(func(err error) {
				printWarning("connection lost: %v\n", err)
			}),
		)
		for _, name := range []string{
			domain.TaskCreated, domain.TaskUpdated, domain.TaskMoved, domain.TaskDeleted,
			domain.ColumnCreated, domain.ColumnUpdated, domain.ColumnDeleted, domain.ColumnsOrdered,
			domain.MemberAdded, domain.MemberRemoved, domain.BoardDeleted,
		} {
			client.On(name, func(ev domain.Event) {
				eng.HandleEvent(ev)
				printEvent(eng, ev)
			})
		}

		if err := client.Connect(ctx); err != nil {
			return err
		}
		defer client.Close()
		if err := client.JoinRoom(boardID); err != nil {
			return err
		}

		printBoard(eng, boardID)
		printDetail("watching, ^C to stop\n")
		<-ctx.Done()

		printLine("\n")
		printBoard(eng, boardID)
		return nil
	},
}

var errNoBoard = &domain.NotFoundError{Kind: "board", ID: "(none opened yet)"}

func printEvent(eng *engine.Engine, ev domain.Event) {
	switch ev.Name {
	case domain.TaskCreated, domain.TaskUpdated:
		var task domain.Task
		if sonic.Unmarshal(ev.Data, &task) == nil {
			printLine("%s %s\n", eventLabel(ev.Name), task.Title)
		}
	case domain.TaskMoved:
		var data domain.TaskMovedData
		if sonic.Unmarshal(ev.Data, &data) == nil {
			col, _ := eng.Store().GetColumn(data.Task.ColumnID)
			printLine("%s %s → %s\n", eventLabel(ev.Name), data.Task.Title, col.Title)
		}
	case domain.TaskDeleted:
		var data domain.TaskDeletedData
		if sonic.Unmarshal(ev.Data, &data) == nil {
			printLine("%s %s\n", eventLabel(ev.Name), data.TaskID)
		}
	case domain.BoardDeleted:
		printError("board was deleted\n")
	default:
		printLine("%s\n", eventLabel(ev.Name))
	}
}

func eventLabel(name string) string {
	return cyan.Sprintf("[%s]", name)
}
