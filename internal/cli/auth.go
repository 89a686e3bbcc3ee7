package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fragmede/branchdesk/internal/api"
	"github.com/fragmede/branchdesk/internal/auth"
	"github.com/fragmede/branchdesk/internal/render"
)

func newLoginCmd(opts *options) *cobra.Command {
	var (
		email    string
		remember bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if email == "" {
				if email, err = p.line("Email"); err != nil {
					return err
				}
			}
			password, err := p.secret("Password")
			if err != nil {
				return err
			}

			res, err := d.session.Login(cmd.Context(), email, password, remember)
			if err != nil {
				return err
			}
			// The API may answer with a token alone.
			if res.User == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", res.User.DisplayName(), res.User.Role.Label())
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "account email")
	cmd.Flags().BoolVar(&remember, "remember", false, "keep the session for 30 days instead of 1")
	return cmd
}

func newRegisterCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account; a verification code is emailed to you",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			draft, err := promptDraft(p)
			if err != nil {
				return err
			}
			pending, err := d.session.Register(cmd.Context(), draft)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if pending.Message != "" {
				fmt.Fprintln(out, pending.Message)
			}
			return verifyLoop(cmd.Context(), d.session, p, pending.Email)
		},
	}
	return cmd
}

func promptDraft(p *prompter) (auth.Draft, error) {
	var d auth.Draft
	var err error
	fields := []struct {
		label string
		dst   *string
	}{
		{"Username", &d.Username},
		{"Full name", &d.FullName},
		{"Email", &d.Email},
		{"Phone", &d.PhoneNumber},
	}
	for _, f := range fields {
		if *f.dst, err = p.line(f.label); err != nil {
			return d, err
		}
	}
	if d.Password, err = p.secret("Password"); err != nil {
		return d, err
	}
	if d.ConfirmPassword, err = p.secret("Confirm password"); err != nil {
		return d, err
	}
	kind, err := p.line("IEEE member? (y/n)")
	if err != nil {
		return d, err
	}
	switch strings.ToLower(kind) {
	case "y", "yes":
		d.MembershipType = api.MembershipIEEE
		if d.MembershipCode, err = p.line("Membership code"); err != nil {
			return d, err
		}
	case "n", "no":
		d.MembershipType = api.MembershipNone
	}
	return d, nil
}

// verifyLoop asks for the emailed code until it is accepted. Typing "r"
// sends a new code.
func verifyLoop(ctx context.Context, s *auth.Session, p *prompter, email string) error {
	for {
		code, err := p.line(`Verification code ("r" to resend)`)
		if err != nil {
			return err
		}
		if strings.EqualFold(code, "r") {
			if err := s.ResendOTP(ctx, email, api.OTPRegistration); err != nil {
				fmt.Fprintln(p.out, "Error:", err)
				continue
			}
			fmt.Fprintln(p.out, "A new code is on its way to", email)
			continue
		}
		if _, err := s.VerifyRegistration(ctx, email, code); err != nil {
			if auth.IsKind(err, auth.KindNetwork) {
				return err
			}
			fmt.Fprintln(p.out, "Error:", err)
			continue
		}
		fmt.Fprintf(p.out, "Email verified. Log in with: %s login --email %s\n", appName, email)
		return nil
	}
}

func newVerifyCmd(opts *options) *cobra.Command {
	var email, code string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Complete a registration with the emailed code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			p := newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())
			if code == "" {
				return verifyLoop(cmd.Context(), d.session, p, email)
			}
			if _, err := d.session.VerifyRegistration(cmd.Context(), email, code); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Email verified.")
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email the code was sent to")
	cmd.Flags().StringVar(&code, "code", "", "6-digit code; prompted for when empty")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newResendCmd(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "resend-otp",
		Short: "Send a new registration code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			if err := d.session.ResendOTP(cmd.Context(), email, api.OTPRegistration); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "A new code is on its way to", email)
			return nil
		},
	}
	cmd.Flags().StringVarP(&email, "email", "e", "", "email the registration was started with")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			d.session.Logout(cmd.Context())
			if err := d.db.ClearSnapshots(); err != nil {
				d.log.Warn("clearing snapshots", "error", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			user, err := d.session.GetCurrentUser(cmd.Context())
			if err != nil {
				return err
			}
			if user == nil {
				return auth.ErrNoToken
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s <%s>\n", user.DisplayName(), user.Email)
			fmt.Fprintf(out, "role:    %s\n", user.Role.Label())
			if exp, ok := d.session.TokenExpiry(); ok {
				fmt.Fprintf(out, "expires: %s (%s)\n", render.FormatDateTime(exp), render.Countdown(exp, time.Now()))
			}
			return nil
		},
	}
}

func newRefreshCmd(opts *options) *cobra.Command {
	var remember bool
	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Trade the stored token for a fresh one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := opts.open()
			if err != nil {
				return err
			}
			defer d.close()

			if !d.session.IsAuthenticated() {
				return auth.ErrNoToken
			}
			if !d.session.RefreshToken(cmd.Context(), remember) {
				return fmt.Errorf("session could not be renewed; log in again")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Session renewed.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&remember, "remember", false, "keep the renewed session for 30 days instead of 1")
	return cmd
}
