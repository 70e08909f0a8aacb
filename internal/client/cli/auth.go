package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/hushkey/internal/client/services"
	"github.com/dmitrijs2005/hushkey/internal/common"
)

// Register creates an account with a freshly bootstrapped vault and prints
// the personal secret exactly once. The secret is wiped right after display;
// there is no way to show it again.
func (a *App) Register(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	fullName, err := GetSimpleText(a.reader, "Enter full name (optional)", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	session, secret, err := a.auth.Register(ctx, services.RegisterInput{
		Email:    email,
		Password: string(password),
		FullName: fullName,
	})
	if err != nil {
		if errors.Is(err, common.ErrEmailInUse) {
			fmt.Println("This email is already registered.")
			return err
		}
		fmt.Println("Registration failed:", err.Error())
		return err
	}

	fmt.Println()
	fmt.Println("Your personal secret (write it down, it will not be shown again):")
	fmt.Println()
	fmt.Println("  " + hex.EncodeToString(secret))
	fmt.Println()
	fmt.Println("Without it your stored keys cannot be recovered, by anyone.")
	common.WipeByteArray(secret)

	a.session = session
	return nil
}

// Login authenticates with email+password, then unlocks the returned
// envelope with the personal secret.
func (a *App) Login(ctx context.Context) error {
	email, err := GetSimpleText(a.reader, "Enter email", os.Stdout)
	if err != nil {
		return err
	}
	password, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	secret, err := GetPersonalSecret(os.Stdout)
	if err != nil {
		fmt.Println(err.Error())
		return err
	}
	defer common.WipeByteArray(secret)

	session, err := a.auth.Login(ctx, email, string(password), secret)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrInvalidCredentials):
			fmt.Println("Invalid email or password.")
		case errors.Is(err, common.ErrAuthenticationFailed):
			fmt.Println("Wrong personal secret.")
		default:
			fmt.Println("Login failed:", err.Error())
		}
		return err
	}

	a.session = session
	fmt.Println("Logged in.")
	return nil
}

// Refresh rotates the session tokens.
func (a *App) Refresh(ctx context.Context) error {
	if err := a.auth.Refresh(ctx); err != nil {
		fmt.Println("Refresh failed:", err.Error())
		return err
	}
	fmt.Println("Session refreshed.")
	return nil
}

// Profile shows the authenticated user.
func (a *App) Profile(ctx context.Context) error {
	user, err := a.auth.Profile(ctx)
	if err != nil {
		fmt.Println("Profile failed:", err.Error())
		return err
	}

	fmt.Println("Email:     ", user.Email)
	if user.FullName != "" {
		fmt.Println("Full name: ", user.FullName)
	}
	fmt.Println("Public key:", user.PublicKey)
	fmt.Println("Created at:", user.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

// Logout revokes the server session and drops the local one.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx, a.session); err != nil {
		fmt.Println("Logout failed:", err.Error())
		return err
	}
	a.session = nil
	fmt.Println("Logged out.")
	return nil
}
