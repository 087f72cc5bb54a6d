package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mhalter/coachflow/ai/metrics"
	"github.com/mhalter/coachflow/ai/mode"
	"github.com/mhalter/coachflow/ai/pipeline"
	"github.com/mhalter/coachflow/ai/session"
)

// runChatLoop reads turns from stdin until EOF, /quit, or ctx cancellation.
func runChatLoop(ctx context.Context, turns *pipeline.Pipeline, approver *pipeline.Approver, sessions *session.Manager, exporter *metrics.Exporter, userID int32) {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)

	lines := make(chan string)
	go func() {
		defer close(lines)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		var ok bool
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok = <-lines:
			if !ok {
				return
			}
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return
		case strings.HasPrefix(line, "/"):
			runCommand(ctx, approver, sessions, userID, line)
		default:
			runTurn(ctx, turns, exporter, userID, line)
		}
	}
}

func runTurn(ctx context.Context, turns *pipeline.Pipeline, exporter *metrics.Exporter, userID int32, text string) {
	start := time.Now()
	result, err := turns.ProcessTurn(ctx, pipeline.TurnRequest{UserID: userID, Text: text})
	if err != nil {
		exporter.RecordTurn("unknown", 0, false)
		if errors.Is(err, pipeline.ErrEmptyInput) {
			fmt.Println("(nothing to process)")
			return
		}
		fmt.Printf("error: %v\n", err)
		return
	}

	if result.Denied {
		exporter.RecordDenial(result.Mode.String())
		fmt.Println(result.DenialReason)
		return
	}
	exporter.RecordTurn(result.Mode.String(), time.Since(start).Seconds(), true)

	if result.Conversational != "" {
		fmt.Println(result.Conversational)
	}
	for _, d := range result.Drafts {
		exporter.RecordDraft(d.Type)
		fmt.Printf("\n[draft %s] %s (confidence %.2f)\n  %s\n  approve: /approve %s\n",
			d.Type, d.UID, d.Confidence, d.Payload, d.UID)
	}
}

func runCommand(ctx context.Context, approver *pipeline.Approver, sessions *session.Manager, userID int32, line string) {
	fields := strings.Fields(line)
	cmd := fields[0]
	args := fields[1:]

	switch cmd {
	case "/drafts":
		drafts, err := approver.ListPendingDrafts(ctx, userID)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if len(drafts) == 0 {
			fmt.Println("no pending drafts")
			return
		}
		for _, d := range drafts {
			fmt.Printf("[%s] %s  %s\n", d.Type, d.UID, d.Payload)
		}

	case "/approve":
		if len(args) < 1 {
			fmt.Println("usage: /approve <uid>")
			return
		}
		printAction(approver.ApproveDraft(ctx, userID, args[0], 0))

	case "/modify":
		if len(args) < 2 {
			fmt.Println("usage: /modify <uid> <json>")
			return
		}
		var updates map[string]any
		if err := json.Unmarshal([]byte(strings.Join(args[1:], " ")), &updates); err != nil {
			fmt.Printf("invalid updates JSON: %v\n", err)
			return
		}
		printAction(approver.ModifyDraft(ctx, userID, args[0], updates, 0))

	case "/end":
		if len(args) < 1 {
			fmt.Println("usage: /end <mode>")
			return
		}
		md, ok := mode.Parse(args[0])
		if !ok {
			fmt.Printf("unknown mode: %s\n", args[0])
			return
		}
		closed, err := sessions.CloseActive(ctx, userID, md)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			return
		}
		if !closed {
			fmt.Printf("no active %s session\n", md)
			return
		}
		fmt.Printf("%s session closed\n", md)

	case "/reject":
		if len(args) < 1 {
			fmt.Println("usage: /reject <uid> [comment]")
			return
		}
		printAction(approver.RejectDraft(ctx, userID, args[0], strings.Join(args[1:], " "), 0))

	default:
		fmt.Printf("unknown command: %s\n", cmd)
	}
}

func printAction(result *pipeline.DraftActionResult, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}
	if result.CreatedEntityID != "" {
		fmt.Printf("draft %s -> %s (entity %s)\n", result.DraftUID, result.Status, result.CreatedEntityID)
		return
	}
	fmt.Printf("draft %s -> %s\n", result.DraftUID, result.Status)
}
