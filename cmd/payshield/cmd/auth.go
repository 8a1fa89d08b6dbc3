package cmd

import (
	"errors"

	"payshield/internal/auth"
	"payshield/internal/bridge"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func loginCmd(opts *rootOptions) *cobra.Command {
	var secret string

	cmd := &cobra.Command{
		Use:   "login <email>",
		Short: "Sign in and resolve the PayShield profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := readSecret(secret)
			if err != nil {
				return err
			}

			t, err := openTab(cmd.Context(), opts.cfg, opts.tab)
			if err != nil {
				return err
			}
			defer t.Close()
			if err := t.connect(cmd.Context()); err != nil {
				return err
			}

			return report(t.bridge.Login(cmd.Context(), args[0], pw), "Signed in")
		},
	}

	cmd.Flags().StringVarP(&secret, "password", "p", "", "Password (prompted when empty)")
	return cmd
}

func signupCmd(opts *rootOptions) *cobra.Command {
	var (
		secret       string
		role         string
		name         string
		businessName string
	)

	cmd := &cobra.Command{
		Use:   "signup <email>",
		Short: "Create an account and its PayShield profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := auth.ParseRole(role)
			if err != nil {
				return err
			}
			pw, err := readSecret(secret)
			if err != nil {
				return err
			}

			t, err := openTab(cmd.Context(), opts.cfg, opts.tab)
			if err != nil {
				return err
			}
			defer t.Close()
			if err := t.connect(cmd.Context()); err != nil {
				return err
			}

			res := t.bridge.Signup(cmd.Context(), args[0], pw, r, bridge.SignupDetails{
				Name:         name,
				BusinessName: businessName,
			})
			return report(res, "Account created")
		},
	}

	cmd.Flags().StringVarP(&secret, "password", "p", "", "Password (prompted when empty)")
	cmd.Flags().StringVar(&role, "role", "customer", "Role: customer, admin or developer")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&businessName, "business", "", "Business name")
	return cmd
}

func logoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign the tab out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTab(cmd.Context(), opts.cfg, opts.tab)
			if err != nil {
				return err
			}
			defer t.Close()
			if err := t.connect(cmd.Context()); err != nil {
				return err
			}

			res := t.bridge.Logout(cmd.Context())
			if !res.Success {
				// local state is already cleared
				pterm.Warning.Printfln("Signed out locally: %s", res.Error)
				return nil
			}
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}

func whoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the tab's current user without contacting any service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := openTab(cmd.Context(), opts.cfg, opts.tab)
			if err != nil {
				return err
			}
			defer t.Close()

			g := newGate(t)
			if !g.IsAuthenticated() {
				pterm.Info.Println("Not signed in")
				return nil
			}
			printUser(g.CurrentUser())
			return nil
		},
	}
}

func report(res bridge.Result, success string) error {
	if !res.Success {
		return errors.New(res.Error)
	}
	pterm.Success.Println(success)
	printUser(res.User)
	return nil
}

func readSecret(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	return pterm.DefaultInteractiveTextInput.WithMask("*").Show("Password")
}
