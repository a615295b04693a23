// Command watch submits a recording to the dashboard API (or follows an existing
// job) and prints the diarized transcript once it is ready.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codebuildervaibhav/skill-dashboard/internal/auth"
	"github.com/codebuildervaibhav/skill-dashboard/internal/client"
	"github.com/codebuildervaibhav/skill-dashboard/internal/conversation"
	"github.com/codebuildervaibhav/skill-dashboard/internal/logging"
	"github.com/codebuildervaibhav/skill-dashboard/internal/poller"
	"github.com/codebuildervaibhav/skill-dashboard/internal/transcription"
)

func main() {
	var (
		server   = flag.String("server", "http://localhost:8080", "dashboard base URL")
		token    = flag.String("token", os.Getenv("DASHBOARD_TOKEN"), "bearer token")
		secret   = flag.String("secret", "", "sign a short-lived token with this secret (local development)")
		user     = flag.String("user", "dev-user", "subject for tokens signed with -secret")
		file     = flag.String("file", "", "audio file to submit")
		jobID    = flag.String("job", "", "existing transcript id to watch")
		interval = flag.Duration("interval", poller.DefaultInterval, "status check interval")
		attempts = flag.Int("attempts", poller.DefaultMaxAttempts, "status checks before giving up")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console"}, nil)

	if (*file == "") == (*jobID == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -job is required")
		flag.Usage()
		os.Exit(2)
	}

	if *secret != "" {
		signed, err := auth.NewVerifier(*secret, "", nil).Issue(*user, time.Hour)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to sign token")
		}
		*token = signed
	}

	api := client.New(*server, *token, 30*time.Second)
	ctrl := poller.New(api, poller.Options{
		Interval:    *interval,
		MaxAttempts: *attempts,
		OnChange: func(s poller.Snapshot) {
			fmt.Fprintf(os.Stderr, "%-10s attempt %d/%d %s\n", s.State, s.Attempts, *attempts, s.Status)
		},
	})
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *file != "" {
		err = ctrl.Start(ctx, fileUpload(*file))
	} else {
		err = ctrl.Watch(*jobID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctrl.Done():
	case <-ctx.Done():
		ctrl.Close()
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(130)
	}

	os.Exit(report(os.Stdout, ctrl.Snapshot()))
}

func fileUpload(path string) *conversation.Upload {
	var size int64
	if info, err := os.Stat(path); err == nil {
		size = info.Size()
	}
	return &conversation.Upload{
		Name: filepath.Base(path),
		Size: size,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}
}

// report prints the result and returns the exit code.
func report(w io.Writer, s poller.Snapshot) int {
	if s.State != poller.StateCompleted {
		fmt.Fprintf(w, "transcription %s: %s\n", s.JobID, s.Error)
		return 1
	}

	fmt.Fprintf(w, "Transcript %s\n\n%s\n\n", s.JobID, s.Transcript)
	if s.Diarization != "" {
		fmt.Fprintf(w, "Diarization\n\n%s\n", s.Diarization)
		return 0
	}
	if fallback := transcription.FormatFallback(s.Transcript); fallback != "" {
		fmt.Fprintf(w, "Diarization (no speaker data; alternating by sentence)\n\n%s\n", fallback)
	}
	return 0
}
