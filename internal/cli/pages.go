package cli

import (
	"fmt"
	"fyrewiki/internal/cache"
	"fyrewiki/internal/config"
	"fyrewiki/internal/data"
	"fyrewiki/internal/editlock"
	"fyrewiki/internal/service"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	pagesCmd := &cobra.Command{
		Use:   "pages",
		Short: "List pages, most recently edited first",
		Run:   runPages,
	}

	renderCmd := &cobra.Command{
		Use:   "render <title>",
		Short: "Print a page's rendered HTML",
		Args:  cobra.ExactArgs(1),
		Run:   runRender,
	}

	RootCmd.AddCommand(pagesCmd, renderCmd)
}

func runPages(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	pages, err := data.NewSQLPageRepository(db).ListPages(cmd.Context())
	if err != nil {
		exitErr("list pages", err)
	}
	service.SortByRecency(pages)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TITLE\tCATEGORY\tEDITED\tEDITOR")
	for _, p := range pages {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.Title, p.Category, p.LastEditedAt.Format("2006-01-02 15:04"), p.LastEditor)
	}
	tw.Flush()
}

func runRender(cmd *cobra.Command, args []string) {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		exitErr("open database", err)
	}
	defer db.Close()

	// A private in-memory cache keeps the command away from the server's cache file.
	c, err := cache.New(config.CacheConfig{FilePath: "file::memory:", TTL: cfg.Cache.TTL})
	if err != nil {
		exitErr("open cache", err)
	}
	defer c.Close()

	ps := service.NewPageService(
		data.NewSQLPageRepository(db),
		data.NewCategoryRepository(db),
		c,
		editlock.New(),
		service.NewRetryPolicy(cfg.Retry),
		newLogger(cfg),
	)
	page, err := ps.ViewPage(cmd.Context(), args[0], service.Viewer{Role: data.RoleViewer})
	if err != nil {
		exitErr("render", err)
	}
	fmt.Println(page.HTML)
}
