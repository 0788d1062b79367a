package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okian/bookpickr/internal/adapters/catalog"
	"github.com/okian/bookpickr/internal/domain/model"
)

type resolved struct {
	Title  string `json:"title"`
	Author string `json:"author,omitempty"`
	Found  bool   `json:"found"`
	Value  string `json:"value,omitempty"`
}

type subjectResult struct {
	Subject string                `json:"subject"`
	Total   int                   `json:"total"`
	Items   []model.CandidateItem `json:"items"`
}

func newLookupCmd(root *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "Query the catalog directly",
	}
	cmd.AddCommand(
		newResolveCmd(root, "cover", "Resolve a cover image URL for a book",
			func(c *catalog.Client) func(*cobra.Command, string, string) (string, bool) {
				return func(cmd *cobra.Command, t, a string) (string, bool) { return c.ResolveCover(cmd.Context(), t, a) }
			}),
		newResolveCmd(root, "synopsis", "Resolve a short synopsis for a book",
			func(c *catalog.Client) func(*cobra.Command, string, string) (string, bool) {
				return func(cmd *cobra.Command, t, a string) (string, bool) { return c.ResolveSynopsis(cmd.Context(), t, a) }
			}),
		newSubjectCmd(root),
		newAuthorCmd(root),
		newSuggestCmd(root),
		newWorkCmd(root),
	)
	return cmd
}

func newResolveCmd(root *rootFlags, use, short string,
	bind func(*catalog.Client) func(*cobra.Command, string, string) (string, bool),
) *cobra.Command {
	var title, author string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.catalogClient(cmd)
			if err != nil {
				return err
			}
			v, ok := bind(c)(cmd, title, author)
			if err := printJSON(cmd, resolved{Title: title, Author: author, Found: ok, Value: v}); err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s for %q: %w", use, title, errNotFound)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newSubjectCmd(root *rootFlags) *cobra.Command {
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "subject <subject>",
		Short: "List a page of books for a subject",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.catalogClient(cmd)
			if err != nil {
				return err
			}
			items, total := c.SearchSubjectPool(cmd.Context(), args[0], limit, offset)
			if items == nil {
				items = []model.CandidateItem{}
			}
			return printJSON(cmd, subjectResult{Subject: catalog.SubjectSlug(args[0]), Total: total, Items: items})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func newAuthorCmd(root *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "author <name>",
		Short: "List works by an author",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.catalogClient(cmd)
			if err != nil {
				return err
			}
			items := c.SearchAuthorPool(cmd.Context(), strings.Join(args, " "), limit)
			if items == nil {
				items = []model.CandidateItem{}
			}
			return printJSON(cmd, items)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum works")
	return cmd
}

func newSuggestCmd(root *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "suggest <query>",
		Short: "Suggest authors matching a partial name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.catalogClient(cmd)
			if err != nil {
				return err
			}
			hits := c.SearchAuthorSuggestions(cmd.Context(), strings.Join(args, " "), limit)
			if hits == nil {
				hits = []model.AuthorHit{}
			}
			return printJSON(cmd, hits)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 8, "Maximum suggestions")
	return cmd
}

func newWorkCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "work <id>",
		Short: "Show details for a work id such as OL45883W",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := root.catalogClient(cmd)
			if err != nil {
				return err
			}
			w, err := c.FetchWork(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, w)
		},
	}
}
