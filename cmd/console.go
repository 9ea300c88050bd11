package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	app "github.com/okian/codevoice/internal/app"
	"github.com/okian/codevoice/internal/domain/interview"
	"github.com/okian/codevoice/internal/domain/model"
)

const quitCommand = "/quit"

func newConsoleCommand() *cobra.Command {
	var difficulty, topic, candidate string
	cmd := &cobra.Command{
		Use:   "console",
		Short: "Run one interview over stdin and stdout",
		Long: `Run one interview in the terminal. Each input line is a finalized
transcript; replies are printed. Type /quit to abandon the interview.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := interview.StartRequest{CandidateID: candidate, Topic: topic}
			if difficulty != "" {
				d, err := model.ParseDifficulty(difficulty)
				if err != nil {
					return err
				}
				req.Difficulty = d
			}
			return runConsole(cmd.Context(), req, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&difficulty, "difficulty", "", "EASY, MEDIUM or HARD (defaults to default_difficulty)")
	cmd.Flags().StringVar(&topic, "topic", "", "topic filter, matched as a substring")
	cmd.Flags().StringVar(&candidate, "candidate", "", "candidate id; empty uses the placeholder candidate")
	return cmd
}

func runConsole(ctx context.Context, req interview.StartRequest, in io.Reader, out io.Writer) (err error) {
	cfg, log, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	svc := app.New(cfg, app.WithLogger(log))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if stopErr := svc.Stop(context.WithoutCancel(ctx)); err == nil {
			err = stopErr
		}
	}()

	o := svc.NewInterview()
	reply, err := o.Start(ctx, req)
	if err != nil {
		return err
	}
	say(out, reply.Message)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == quitCommand {
			break
		}
		reply, err := o.Answer(ctx, interview.AnswerRequest{Transcript: line})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "[score %d, running %.1f]\n", reply.Score, reply.TotalScore)
		say(out, reply.Message)
		if reply.State == interview.StateSessionComplete {
			fmt.Fprintf(out, "Final score: %.1f\n", reply.TotalScore)
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	sess, err := o.Abandon(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Interview abandoned with score %.1f\n", sess.TotalScore)
	return nil
}

func say(out io.Writer, msg string) {
	fmt.Fprintf(out, "Interviewer: %s\n", msg)
}
