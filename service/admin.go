package service

import (
	"fmt"
	"os"
	"syscall"

	"github.com/spf13/cobra"

	"postroom/app/cache"
	"postroom/app/forms"
	"postroom/app/services"
)

// withServices opens the store for a one-off command.
func (c *cli) withServices(fn func(*services.Services) error) error {
	store, err := openStore(c.cfg, c.log)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(services.New(services.FromStore(store), services.Options{Logger: c.log}))
}

func (c *cli) groupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}

	var description string
	create := &cobra.Command{
		Use:   "create <slug> <title>",
		Short: "Create a group posts can be published into",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(func(svc *services.Services) error {
				group, err := svc.Groups.Create(args[1], args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created group %q (%s) with id %d\n", group.Title, group.Slug, group.ID)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&description, "description", "d", "", "Group description")

	list := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withServices(func(svc *services.Services) error {
				groups, err := svc.Groups.List()
				if err != nil {
					return err
				}
				for _, g := range groups {
					fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", g.ID, g.Slug, g.Title)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(create, list)
	return cmd
}

func (c *cli) userCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	var in forms.SignupInput
	create := &cobra.Command{
		Use:   "create <username>",
		Short: "Create a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Username = args[0]
			in.Password2 = in.Password1
			res := forms.ValidateSignup(in)
			if !res.OK() {
				for field, msgs := range res.Errors {
					for _, msg := range msgs {
						fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", field, msg)
					}
				}
				return fmt.Errorf("invalid user")
			}
			return c.withServices(func(svc *services.Services) error {
				user, err := svc.Users.Signup(res.Value)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s with id %d\n", user.Username, user.ID)
				return nil
			})
		},
	}
	create.Flags().StringVarP(&in.Password1, "password", "p", "", "Password (at least 8 characters)")
	create.Flags().StringVar(&in.Email, "email", "", "Email address")
	create.Flags().StringVar(&in.FirstName, "first-name", "", "First name")
	create.Flags().StringVar(&in.LastName, "last-name", "", "Last name")
	_ = create.MarkFlagRequired("password")

	cmd.AddCommand(create)
	return cmd
}

func (c *cli) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the page cache",
	}

	var (
		page string
		pid  int
	)
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop cached pages so the next request renders fresh content",
		Long: `Drop cached pages so the next request renders fresh content.

With the redis backend the shared cache is cleared directly. The memory
backend lives inside the serve process, which flushes it on SIGHUP; pass
that process id with --pid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.cfg.Cache.Backend != "redis" {
				if pid <= 0 {
					return fmt.Errorf("the memory cache lives in the serve process: pass its --pid (logged at startup)")
				}
				if err := signalFlush(pid); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Asked process %d to flush its page cache\n", pid)
				return nil
			}
			pc, err := openCache(cmd.Context(), c.cfg)
			if err != nil {
				return err
			}
			defer pc.Close()
			if page != "" {
				if err := pc.Clear(cmd.Context(), cache.IndexKey(page)); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cache.IndexKey(page))
				return nil
			}
			if err := pc.Flush(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Page cache flushed")
			return nil
		},
	}
	clearCmd.Flags().StringVar(&page, "page", "", "Clear only this index page (redis backend)")
	clearCmd.Flags().IntVar(&pid, "pid", 0, "Process id of the server holding a memory cache")

	cmd.AddCommand(clearCmd)
	return cmd
}

// signalFlush asks a running server to flush its in-process page cache.
func signalFlush(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}
	return nil
}
