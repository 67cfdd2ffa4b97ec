package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/victornedelchev/Games-Play/pkg/client"
	"github.com/victornedelchev/Games-Play/pkg/schema"
)

var (
	serverURL string
	tokenFile string
	api       *client.Client
)

var rootCmd = &cobra.Command{
	Use:               "gameplay",
	Short:             "Command line client for the Games Play backend",
	PersistentPreRunE: setup,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	defaultURL := os.Getenv("GAMEPLAY_URL")
	if defaultURL == "" {
		defaultURL = client.DefaultURL
	}
	home, _ := os.UserHomeDir()

	rootCmd.PersistentFlags().StringVar(&serverURL, "url", defaultURL, "server address (env GAMEPLAY_URL)")
	rootCmd.PersistentFlags().StringVar(&tokenFile, "token-file", filepath.Join(home, ".gameplay-token"), "where the session token is kept")

	rootCmd.AddCommand(registerCmd(), loginCmd(), logoutCmd(), meCmd(), gamesCmd(), commentsCmd())
}

func setup(_ *cobra.Command, _ []string) error {
	var opts []client.Option
	if raw, err := os.ReadFile(tokenFile); err == nil {
		opts = append(opts, client.WithToken(strings.TrimSpace(string(raw))))
	}
	api = client.New(serverURL, opts...)
	return nil
}

func saveToken(token string) error {
	if token == "" {
		if err := os.Remove(tokenFile); err != nil && !os.IsNotExist(err) {
			return err
		}
		return nil
	}
	return os.WriteFile(tokenFile, []byte(token), 0o600)
}

func registerCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "register <email> <password>",
		Short: "Create an account and log in",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := api.Register(cmd.Context(), schema.Credentials{Email: args[0], Password: args[1], Username: username})
			if err != nil {
				return err
			}
			if err := saveToken(s.AccessToken); err != nil {
				return err
			}
			return printJSON(s.User)
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "display name")
	return cmd
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <email> <password>",
		Short: "Start a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := api.Login(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if err := saveToken(s.AccessToken); err != nil {
				return err
			}
			return printJSON(s.User)
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := api.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("OK")
			return saveToken("")
		},
	}
}

func meCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			u, err := api.Me(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(u)
		},
	}
}

func gamesCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "games", Short: "Browse and edit games"}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List every game, newest first",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printResult(api.ListGames(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "latest",
			Short: "Show the three newest games",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printResult(api.LatestGames(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "get <id>",
			Short: "Show one game",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printResult(api.GetGame(cmd.Context(), args[0]))
			},
		},
		&cobra.Command{
			Use:   "create <json>",
			Short: "Create a game from a JSON document",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := parseGame(args[0])
				if err != nil {
					return err
				}
				return printResult(api.CreateGame(cmd.Context(), g))
			},
		},
		&cobra.Command{
			Use:   "update <id> <json>",
			Short: "Replace a game with a JSON document",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				g, err := parseGame(args[1])
				if err != nil {
					return err
				}
				return printResult(api.UpdateGame(cmd.Context(), args[0], g))
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a game",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := api.DeleteGame(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Println("OK")
				return nil
			},
		},
	)
	return cmd
}

func commentsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "comments", Short: "Read and write game comments"}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <gameId>",
			Short: "List the comments of a game",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printResult(api.ListComments(cmd.Context(), args[0]))
			},
		},
		&cobra.Command{
			Use:   "create <gameId> <text>",
			Short: "Comment on a game",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printResult(api.CreateComment(cmd.Context(), args[0], strings.Join(args[1:], " ")))
			},
		},
	)
	return cmd
}

func parseGame(raw string) (schema.Game, error) {
	var g schema.Game
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return g, fmt.Errorf("invalid game JSON: %w", err)
	}
	return g, nil
}

func printResult(v any, err error) error {
	if err != nil {
		return err
	}
	return printJSON(v)
}

func printJSON(v any) error {
	bytes, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(bytes))
	return nil
}
