package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dfryer1193/dururack/api"
	"github.com/dfryer1193/dururack/archive/application"
	"github.com/dfryer1193/dururack/archive/domain"
	"github.com/dfryer1193/dururack/archive/view"
	"github.com/spf13/cobra"
)

// withStore opens the database for the duration of fn.
func withStore(opts *rootOptions, fn func(ctx context.Context, st *store) error) error {
	st, err := openStore(opts.cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	return fn(context.Background(), st)
}

func newArchivesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "archives",
		Short: "List archives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				archives, err := st.service.ListArchives(ctx)
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tONLINE\tSOURCE")
				for _, a := range archives {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", a.ID, a.Name, a.IsOnline, a.SourceURL)
				}
				return w.Flush()
			})
		},
	}
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>...",
		Short: "Import archive files",
		Long: `Imports one or more archive JSON files. An archive whose id already exists
is replaced. Files after the first invalid one are not imported.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := make([][]byte, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				files = append(files, data)
			}

			return withStore(opts, func(ctx context.Context, st *store) error {
				imported, err := st.service.Import(ctx, files...)
				for _, a := range imported {
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s) with %d posts\n", a.Name, a.ID, len(a.Posts))
				}
				return err
			})
		},
	}
}

func newImportURLCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-url <url>",
		Short: "Import an archive from a URL as an online archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				a, err := st.service.ImportURL(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s) with %d posts\n", a.Name, a.ID, len(a.Posts))
				return nil
			})
		},
	}
}

func newImportDirCmd(opts *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "import-dir <dir>",
		Short: "Import a directory of markdown files as a new archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				a, err := st.service.ImportDir(ctx, args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%s) with %d posts\n", a.Name, a.ID, len(a.Posts))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "archive name (defaults to the directory name)")
	return cmd
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <archive-id>",
		Short: "Export an archive as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				data, err := st.service.Export(ctx, args[0])
				if err != nil {
					return err
				}

				if output == "" || output == "-" {
					_, err = cmd.OutOrStdout().Write(data)
					return err
				}
				if err := os.WriteFile(output, data, 0644); err != nil {
					return fmt.Errorf("failed to write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Exported %s to %s\n", args[0], output)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	return cmd
}

func newPostsCmd(opts *rootOptions) *cobra.Command {
	var q view.Query

	cmd := &cobra.Command{
		Use:   "posts <archive-id>",
		Short: "List the posts of an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				posts, err := st.service.ListPosts(ctx, args[0], q)
				if err != nil {
					return err
				}
				if len(posts) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No posts found.")
					return nil
				}
				return printPosts(cmd.OutOrStdout(), posts)
			})
		},
	}

	cmd.Flags().StringVarP(&q.Text, "query", "q", "", "search title, content and tags")
	cmd.Flags().StringVarP(&q.Tag, "tag", "t", "", "only posts with this tag")
	return cmd
}

func newTagsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tags <archive-id>",
		Short: "List the tags used in an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				tags, err := st.service.Tags(ctx, args[0])
				if err != nil {
					return err
				}
				for _, tag := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), tag)
				}
				return nil
			})
		},
	}
}

func newFeaturedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "featured <archive-id>",
		Short: "List the featured posts of a portal archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(ctx context.Context, st *store) error {
				posts, err := st.service.Featured(ctx, args[0])
				if err != nil {
					return err
				}
				return printPosts(cmd.OutOrStdout(), posts)
			})
		},
	}
}

func printPosts(out io.Writer, posts []domain.Post) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCREATED\tTAGS")
	for _, p := range posts {
		created := application.FormatDate(api.FormatTime(p.CreatedAt), application.DisplayDateLayout)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Title, created, strings.Join(p.Tags, ", "))
	}
	return w.Flush()
}
