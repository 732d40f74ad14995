package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"healthmate/internal/config"
	"healthmate/internal/core"
	"healthmate/pkg"

	"github.com/spf13/cobra"
)

func chatCmd() *cobra.Command {
	var (
		langCode string
		lat, lon float64
		locate   bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant from the terminal",
		Long: `Start an interactive conversation.

Commands:
  /file <path> [comment]   upload a report (.jpg, .jpeg, .png, .txt)
  /hospitals               find nearby hospitals
  /lang <en|hi>            switch language and reset the conversation
  /quit                    exit`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if langCode == "" {
				langCode = cfg.DefaultLanguage
			}
			lang, ok := pkg.ParseLanguage(langCode)
			if !ok {
				return fmt.Errorf("unsupported language %q", langCode)
			}
			logger := newLogger(cfg)

			chat, closer, err := buildChatService(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closer()

			var loc core.Locator
			if locate || cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon") {
				loc = core.NewFixedLocator(lat, lon)
			}
			sess := core.NewRegistry(chat).Create(lang)
			return runChat(cmd.Context(), sess, loc, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&langCode, "lang", "", "conversation language (en or hi)")
	cmd.Flags().Float64Var(&lat, "lat", 0, "device latitude for hospital lookup")
	cmd.Flags().Float64Var(&lon, "lon", 0, "device longitude for hospital lookup")
	cmd.Flags().BoolVar(&locate, "locate", false, "share --lat/--lon even when both are zero")
	return cmd
}

func runChat(ctx context.Context, sess *core.Session, loc core.Locator, in io.Reader, out io.Writer) error {
	printTurns(out, sess.Snapshot().Turns)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !sc.Scan() {
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var (
			turns []pkg.Turn
			err   error
		)
		switch fields := strings.Fields(line); fields[0] {
		case "/quit", "/exit":
			return nil
		case "/hospitals":
			var t pkg.Turn
			t, err = sess.FindHospitals(ctx, loc)
			turns = []pkg.Turn{t}
		case "/lang":
			lang, ok := pkg.ParseLanguage(strings.Join(fields[1:], ""))
			if !ok {
				fmt.Fprintln(out, "usage: /lang <en|hi>")
				continue
			}
			if err = sess.SetLanguage(lang); err == nil {
				turns = sess.Snapshot().Turns
			}
		case "/file":
			if len(fields) < 2 {
				fmt.Fprintln(out, "usage: /file <path> [comment]")
				continue
			}
			var att *pkg.Attachment
			att, err = loadAttachment(fields[1])
			if err == nil {
				turns, err = sess.Send(ctx, strings.Join(fields[2:], " "), att, loc)
			}
		default:
			turns, err = sess.Send(ctx, line, nil, loc)
		}
		if err != nil {
			fmt.Fprintln(out, "error:", err)
			continue
		}
		printTurns(out, assistantOnly(turns))
	}
}

func assistantOnly(turns []pkg.Turn) []pkg.Turn {
	out := turns[:0:0]
	for _, t := range turns {
		if t.Sender == pkg.SenderAssistant {
			out = append(out, t)
		}
	}
	return out
}

func printTurns(out io.Writer, turns []pkg.Turn) {
	for _, t := range turns {
		if t.Urgency == pkg.UrgencyEmergency {
			fmt.Fprintln(out, "[EMERGENCY]")
		}
		fmt.Fprintln(out, t.Text)
		if len(t.Findings) > 0 {
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TEST\tVALUE\tTREND\tSTATUS")
			for _, f := range t.Findings {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.TestName, f.Value, f.Trend, f.Status)
			}
			_ = tw.Flush()
		}
		fmt.Fprintln(out)
	}
}

// loadAttachment reads a report file and labels it the same way uploads
// over HTTP are labelled.
func loadAttachment(path string) (*pkg.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("file is empty")
	}
	name := filepath.Base(path)
	return &pkg.Attachment{Name: name, MediaType: pkg.MediaTypeFor(name, data), Data: data}, nil
}
