package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/codevoice/internal/domain/interview"
	"github.com/okian/codevoice/internal/domain/policy"
)

func consoleEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CODEVOICE_LLM_DISABLED", "true")
	t.Setenv("CODEVOICE_QUESTIONS_FILE", "../configs/questions.yaml")
	t.Setenv("CODEVOICE_MAX_QUESTIONS", "2")
	t.Setenv("CODEVOICE_WORKER_COUNT", "1")
	t.Setenv("CODEVOICE_LOG_LEVEL", "error")
}

func TestRootCommand(t *testing.T) {
	convey.Convey("Given the root command", t, func() {
		cmd := newRootCommand()

		convey.Convey("Then it exposes the subcommands", func() {
			names := []string{}
			for _, c := range cmd.Commands() {
				names = append(names, c.Name())
			}
			convey.So(names, convey.ShouldContain, "serve")
			convey.So(names, convey.ShouldContain, "console")
			convey.So(names, convey.ShouldContain, "migrate")
		})
	})
}

func TestConsole(t *testing.T) {
	convey.Convey("Given a console interview without a model", t, func() {
		consoleEnv(t)
		var out bytes.Buffer

		convey.Convey("When the candidate answers every question", func() {
			err := runConsole(context.Background(), interview.StartRequest{}, strings.NewReader("one\ntwo\n"), &out)

			convey.Convey("Then the interview completes with fallback replies", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldContainSubstring, policy.FallbackText)
				convey.So(out.String(), convey.ShouldContainSubstring, interview.ClosingText)
				convey.So(out.String(), convey.ShouldContainSubstring, "Final score: 0.0")
			})
		})

		convey.Convey("When the candidate quits", func() {
			err := runConsole(context.Background(), interview.StartRequest{}, strings.NewReader("/quit\n"), &out)

			convey.Convey("Then the interview is abandoned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out.String(), convey.ShouldStartWith, "Interviewer: ")
				convey.So(out.String(), convey.ShouldContainSubstring, "Interview abandoned with score 0.0")
			})
		})
	})
}

func TestMigrateWithMemoryStore(t *testing.T) {
	convey.Convey("Given the memory store driver", t, func() {
		t.Setenv("CODEVOICE_LLM_DISABLED", "true")
		cmd := newRootCommand()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"migrate"})

		convey.Convey("Then migrate has nothing to do", func() {
			convey.So(cmd.ExecuteContext(context.Background()), convey.ShouldBeNil)
			convey.So(out.String(), convey.ShouldContainSubstring, "nothing to migrate")
		})
	})
}

func TestServeRejectsBadConfig(t *testing.T) {
	convey.Convey("Given a missing model credential", t, func() {
		t.Setenv("CODEVOICE_LLM_DISABLED", "false")
		t.Setenv("CODEVOICE_LLM_API_KEY", "")
		t.Setenv("KRUTRIM_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		convey.Convey("Then serve fails at startup", func() {
			err := runServe(context.Background())
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "llm_api_key")
		})
	})
}
