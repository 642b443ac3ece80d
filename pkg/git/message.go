package git

import (
	"strings"
)

// Commit types for conventional commit messages.
const (
	CommitTypeFeat  = "feat"
	CommitTypeFix   = "fix"
	CommitTypeDocs  = "docs"
	CommitTypeChore = "chore"
)

// Footer marks commits written by notefold.
const Footer = "Changed-by: notefold"

// FormatCommitMessage builds a conventional commit message:
//
//	<type>(<scope>): <subject>
//
//	<body>
//
//	Changed-by: notefold
func FormatCommitMessage(ctype, scope, subject, body string) string {
	var sb strings.Builder

	if ctype == "" {
		ctype = CommitTypeChore
	}
	sb.WriteString(ctype)

	if scope != "" {
		sb.WriteString("(")
		sb.WriteString(scope)
		sb.WriteString(")")
	}

	sb.WriteString(": ")
	sb.WriteString(subject)

	if body = strings.TrimSpace(body); body != "" {
		sb.WriteString("\n\n")
		sb.WriteString(body)
	}

	sb.WriteString("\n\n")
	sb.WriteString(Footer)
	return sb.String()
}

// AppendFooter adds the footer to a free-form message unless present.
func AppendFooter(msg string) string {
	if strings.Contains(msg, Footer) {
		return msg
	}
	msg = strings.TrimRight(msg, "\n")
	return msg + "\n\n" + Footer
}
