// Package cli implements the interactive hushkey client: a small REPL that
// drives registration, login with envelope unlock, session refresh, and
// logout against the credential server.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/hushkey/internal/client/api"
	"github.com/dmitrijs2005/hushkey/internal/client/config"
	"github.com/dmitrijs2005/hushkey/internal/client/services"
)

type App struct {
	config  *config.Config
	auth    *services.AuthService
	session *services.Session
	reader  *bufio.Reader
}

func NewApp(c *config.Config) (*App, error) {
	apiClient, err := api.NewClient(c.ServerAddr, c.RequestTimeout)
	if err != nil {
		return nil, err
	}

	return &App{
		config: c,
		auth:   services.NewAuthService(apiClient),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) getStatus() string {
	if a.session == nil {
		return ""
	}
	return "(" + a.session.User.Email + ")"
}

func (a *App) Run(ctx context.Context) {
	defer func() { a.session.Close() }()
	scanner := bufio.NewScanner(os.Stdin)
	runREPL(ctx, a, a.getStatus, scanner)
}
