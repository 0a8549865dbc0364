package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loviiin/unmark/pkg/cookies"
	"github.com/loviiin/unmark/services/resolver/internal/media"
)

var cookieCmd = &cobra.Command{
	Use:   "cookie",
	Short: "Manage the session cookies used by the browser strategy",
}

var cookieSetCmd = &cobra.Command{
	Use:     "set <platform> <cookie header>",
	Short:   "Store the cookie header for a platform",
	Example: `  unmark cookie set xiaohongshu "a1=...; web_session=..."`,
	Args:    cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !validPlatform(args[0]) {
			return fmt.Errorf("unknown platform %q", args[0])
		}
		return withCookies(func(s *cookies.Store) error {
			if err := s.Save(args[0], strings.TrimSpace(strings.Join(args[1:], " "))); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved cookie for %s\n", args[0])
			return nil
		})
	},
}

var cookieClearCmd = &cobra.Command{
	Use:   "clear <platform>",
	Short: "Forget the cookie of a platform",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCookies(func(s *cookies.Store) error {
			return s.Clear(args[0])
		})
	},
}

var cookieListCmd = &cobra.Command{
	Use:   "list",
	Short: "List platforms with a stored cookie",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withCookies(func(s *cookies.Store) error {
			saved, err := s.List()
			if err != nil {
				return err
			}
			platforms := make([]string, 0, len(saved))
			for p := range saved {
				platforms = append(platforms, p)
			}
			sort.Strings(platforms)
			for _, p := range platforms {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", p, saved[p].Local().Format(time.DateTime))
			}
			return nil
		})
	},
}

func init() {
	cookieCmd.AddCommand(cookieSetCmd, cookieClearCmd, cookieListCmd)
}

func validPlatform(p string) bool {
	for _, known := range media.Platforms() {
		if string(known) == p {
			return true
		}
	}
	return false
}

func withCookies(fn func(*cookies.Store) error) error {
	s, err := cookies.Open(cfg.Cookies.Path)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}
