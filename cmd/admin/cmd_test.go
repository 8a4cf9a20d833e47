package main

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"satpam/internal/auth"
	"satpam/internal/config"
	"satpam/internal/personnel"
)

type recordingPeople struct{ created []personnel.Person }

func (r *recordingPeople) Create(_ context.Context, p personnel.Person) (personnel.Person, error) {
	if p.ID == "" {
		p.ID = "11111111-1111-1111-1111-111111111111"
	}
	r.created = append(r.created, p)
	return p, nil
}

func setup(t *testing.T) (*commandLine, *bytes.Buffer, *recordingPeople) {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var out bytes.Buffer
	cfg := config.App{JWTIssuer: "satpam", JWTSigningKey: "k", AccessTTL: time.Hour}
	cli := newCommandLine(cfg, &out)
	cli.db = db
	people := &recordingPeople{}
	cli.people = func(*sql.DB) personCreator { return people }
	return cli, &out, people
}

// lastLine returns the final non-empty output line, where tokens are printed.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return lines[len(lines)-1]
}

func Test_commandLine_help(t *testing.T) {
	cli, out, _ := setup(t)

	assert.ErrorIs(t, cli.run([]string{"admin"}), errHelp)
	assert.Contains(t, out.String(), "Usage:")
	assert.ErrorIs(t, cli.run([]string{"admin", "nope"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"admin", "token", "-sub", "x", "-role", "janitor"}), errHelp)
	assert.ErrorIs(t, cli.run([]string{"admin", "addperson", "-role", "guard"}), errHelp)
}

func Test_commandLine_migrate(t *testing.T) {
	cli, out, _ := setup(t)
	orig := migrateFunc
	t.Cleanup(func() { migrateFunc = orig })

	var called bool
	migrateFunc = func(context.Context, *sql.DB) error { called = true; return nil }
	require.NoError(t, cli.run([]string{"admin", "migrate"}))
	assert.True(t, called)
	assert.Contains(t, out.String(), "schema is up to date")

	migrateFunc = func(context.Context, *sql.DB) error { return errors.New("syntax error") }
	assert.ErrorContains(t, cli.run([]string{"admin", "migrate"}), "syntax error")
}

func Test_commandLine_token(t *testing.T) {
	cli, out, _ := setup(t)

	require.NoError(t, cli.run([]string{"admin", "token", "-sub", "p-1", "-role", "supervisor", "-ttl", "30m"}))
	claims, err := auth.Parse(lastLine(out.String()), "k", "satpam")
	require.NoError(t, err)
	assert.Equal(t, "p-1", claims.Subject)
	assert.Equal(t, "supervisor", claims.Role)
	assert.WithinDuration(t, time.Now().Add(30*time.Minute), claims.ExpiresAt.Time, time.Minute)
}

func Test_commandLine_addperson(t *testing.T) {
	cli, out, people := setup(t)

	require.NoError(t, cli.run([]string{"admin", "addperson", "-first", "Budi", "-last", "Santoso", "-role", "admin"}))
	require.Len(t, people.created, 1)
	assert.Equal(t, personnel.RoleAdmin, people.created[0].Role)
	assert.Contains(t, out.String(), "created Budi Santoso")

	claims, err := auth.Parse(lastLine(out.String()), "k", "satpam")
	require.NoError(t, err)
	assert.Equal(t, "11111111-1111-1111-1111-111111111111", claims.Subject)
}

func Test_commandLine_template(t *testing.T) {
	cli, _, _ := setup(t)

	path := filepath.Join(t.TempDir(), "roster.xlsx")
	require.NoError(t, cli.run([]string{"admin", "template", "-o", path}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("PK")), "xlsx is a zip archive")
}
