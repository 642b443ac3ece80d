package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCommitMessage(t *testing.T) {
	tests := []struct {
		name    string
		ctype   string
		scope   string
		subject string
		body    string
		want    string
	}{
		{
			name:    "Full",
			ctype:   CommitTypeDocs,
			scope:   "notes",
			subject: "update n1",
			body:    "  details\n",
			want:    "docs(notes): update n1\n\ndetails\n\n" + Footer,
		},
		{
			name:    "No Scope",
			ctype:   CommitTypeFix,
			subject: "typo",
			want:    "fix: typo\n\n" + Footer,
		},
		{
			name:    "Default Type",
			subject: "tidy",
			want:    "chore: tidy\n\n" + Footer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatCommitMessage(tt.ctype, tt.scope, tt.subject, tt.body))
		})
	}
}

func TestAppendFooter(t *testing.T) {
	assert.Equal(t, "msg\n\n"+Footer, AppendFooter("msg"))
	assert.Equal(t, "msg\n\n"+Footer, AppendFooter("msg\n"))

	already := AppendFooter("msg")
	assert.Equal(t, already, AppendFooter(already))
}
