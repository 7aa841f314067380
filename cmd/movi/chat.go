package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/movi/kernel"
	"github.com/tailored-agentic-units/movi/session"
)

var (
	chatSession string
	chatPage    string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Reads one message per line. When the assistant asks for confirmation,
the next line is the answer: yes, y, proceed, confirm, ok, okay, yeah, yep,
sure or approve approve the action and anything else cancels it.`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session id to continue (defaults to a new one)")
	chatCmd.Flags().StringVar(&chatPage, "page", "busDashboard", "UI page the conversation happens on")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	id := chatSession
	if id == "" {
		id = uuid.NewString()
	}

	suspended := false
	if s, err := a.kernel.Store().Get(ctx, id); err == nil {
		suspended = s.Suspended
	} else if !errors.Is(err, session.ErrNotFound) {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "session %s (ctrl-d to quit)\n", id)
	if suspended {
		fmt.Fprintln(out, "This session is waiting for a confirmation. (yes/no)")
	}

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "> ")
		if !in.Scan() {
			fmt.Fprintln(out)
			return in.Err()
		}
		line := strings.TrimSpace(in.Text())
		if line == "" && !suspended {
			continue
		}

		req := kernel.Request{SessionID: id, Message: line, Page: chatPage}
		if suspended {
			approved := kernel.ParseDecision(line)
			req.Decision = &approved
		}

		res, err := a.kernel.Turn(ctx, req, func(token string) {
			fmt.Fprint(out, token)
		})
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}

		suspended = res.Suspended
		if suspended {
			fmt.Fprintln(out, res.Confirmation)
			continue
		}
		fmt.Fprintln(out)
	}
}
