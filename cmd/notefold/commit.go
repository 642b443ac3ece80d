package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aretw0/notefold/pkg/core"
	"github.com/aretw0/notefold/pkg/git"
)

var (
	commitMessage string
	commitType    string
	commitScope   string
)

// withChangeReason attaches the commit message for versioned stores.
// A --type builds a conventional message; a bare -m is kept as written.
// Without either, the store's default message is used.
func withChangeReason(ctx context.Context, subject string) context.Context {
	var msg string
	switch {
	case commitType != "":
		if commitMessage != "" {
			subject = commitMessage
		}
		msg = git.FormatCommitMessage(commitType, commitScope, subject, "")
	case commitMessage != "":
		msg = git.AppendFooter(commitMessage)
	default:
		return ctx
	}
	return context.WithValue(ctx, core.ChangeReasonKey, msg)
}

func addCommitFlags(cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.Flags().StringVarP(&commitMessage, "message", "m", "", "Commit message when versioning")
		cmd.Flags().StringVarP(&commitType, "type", "t", "", "Conventional commit type (feat, fix, docs, chore)")
		cmd.Flags().StringVarP(&commitScope, "scope", "s", "", "Conventional commit scope")
	}
}
