package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fygallery/internal/album"
	"fygallery/internal/catalog"
	"fygallery/internal/config"
	"fygallery/internal/export"
	"fygallery/internal/gallery"
	"fygallery/internal/prefs"
	"fygallery/internal/scan"
	"fygallery/internal/service"
	"fygallery/internal/storage"
	"fygallery/internal/watch"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "0.3.0"

var (
	configFlag   string
	folderFlags  []string
	pageSizeFlag int
	verboseFlag  bool

	cfg     config.Config
	kv      storage.KV
	gal     *gallery.Gallery
	folders *scan.FolderSet
	logger  *slog.Logger
)

// cliLogger routes component messages into slog. Messages starting with
// "Warning" or "Error" keep their severity.
func cliLogger(msg string) {
	switch {
	case strings.HasPrefix(msg, "Warning"):
		logger.Warn(msg)
	case strings.HasPrefix(msg, "Error"):
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
}

// NewRootCmd creates the root command for the CLI application.
// openKV opens the preferences store for the resolved configuration, so
// tests can hand in an in-memory store.
func NewRootCmd(openKV func(cfg config.Config) (storage.KV, error)) *cobra.Command {
	var rootCmd = &cobra.Command{
		Use:   "fygallery-cli",
		Short: "fygallery CLI - browse, filter and export image folders",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			closeSession()

			level := slog.LevelWarn
			if verboseFlag {
				level = slog.LevelInfo
			}
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			var err error
			cfg, err = config.Load(configFlag, cmd.Flags().Changed("config"))
			if err != nil {
				return err
			}
			if len(folderFlags) > 0 {
				cfg.Folders = folderFlags
			}
			if pageSizeFlag > 0 {
				cfg.PageSize = pageSizeFlag
			}
			kv, err = openKV(cfg)
			if err != nil {
				return fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Backend, err)
			}
			gal = gallery.New(kv, service.NewImageService(), gallery.Options{
				PageSize:          cfg.PageSize,
				SlideshowInterval: cfg.SlideshowInterval,
				Concurrency:       cfg.Concurrency,
				IDScheme:          catalog.IDScheme(cfg.IDScheme),
				SystemPrefersDark: cfg.Theme == string(prefs.Dark),
				Logger:            cliLogger,
			})
			folders = scan.NewFolderSet(cliLogger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeSession()
		},
	}

	// List the filtered view
	var (
		albumFlag    string
		searchFlag   string
		favOnlyFlag  bool
		pageFlag     int
		allPagesFlag bool
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List images matching the album, search and favorites filters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFolders(cmd.Context()); err != nil {
				return err
			}
			gal.SetAlbum(albumFlag)
			gal.SetSearch(searchFlag)
			gal.SetFavoritesOnly(favOnlyFlag)

			shown := gal.Shown()
			for page := 1; (allPagesFlag || page < pageFlag) && gal.HasMore(); page++ {
				gal.LoadMore()
				shown = gal.Shown()
			}
			if !allPagesFlag && pageFlag > 1 {
				shown = lastPage(shown, cfg.PageSize)
			}

			out := cmd.OutOrStdout()
			for _, rec := range shown {
				star := ""
				if gal.IsFavorite(rec.ID) {
					star = "\t★"
				}
				fmt.Fprintf(out, "%s\t%s\t%s%s\n", rec.Name, export.Meta(rec), rec.Album, star)
			}
			if len(gal.View()) == 0 {
				fmt.Fprintln(out, "No images found.")
			}
			if gal.HasMore() {
				fmt.Fprintf(out, "(more: --page %d)\n", pageFlag+1)
			}
			fmt.Fprintln(out, gal.Summary())
			return nil
		},
	}
	listCmd.Flags().StringVarP(&albumFlag, "album", "a", "", "Only show images of this album")
	listCmd.Flags().StringVarP(&searchFlag, "search", "s", "", "Case-insensitive search over name and album")
	listCmd.Flags().BoolVar(&favOnlyFlag, "favorites-only", false, "Only show favorites")
	listCmd.Flags().IntVarP(&pageFlag, "page", "p", 1, "Page to show")
	listCmd.Flags().BoolVar(&allPagesFlag, "all", false, "Show every page")
	rootCmd.AddCommand(listCmd)

	// List albums
	albumsCmd := &cobra.Command{
		Use:   "albums",
		Short: "List albums with image counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFolders(cmd.Context()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !gal.HasAlbumChoice() {
				fmt.Fprintln(out, "No albums to choose from.")
			}
			fmt.Fprintf(out, "%s (%d)\n", album.All, len(gal.Records()))
			for _, a := range gal.Albums() {
				fmt.Fprintf(out, "%s (%d)\n", a.Name, a.Count)
			}
			return nil
		},
	}
	rootCmd.AddCommand(albumsCmd)

	// Show one image
	infoCmd := &cobra.Command{
		Use:   "info [name|id]",
		Short: "Show the details of one image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFolders(cmd.Context()); err != nil {
				return err
			}
			idx, _, err := findRecord(args[0])
			if err != nil {
				return err
			}
			gal.Open(idx)
			lb := gal.Lightbox()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%d/%d]\n", lb.Current.Name, lb.Index+1, lb.Len)
			fmt.Fprintf(out, "%s • %s\n", export.Meta(lb.Current), lb.Current.Album)
			fmt.Fprintf(out, "id: %s\n", lb.Current.ID)
			if !lb.Current.Taken.IsZero() {
				fmt.Fprintf(out, "taken: %s\n", lb.Current.Taken.Format(time.DateTime))
			}
			fmt.Fprintf(out, "favorite: %t\n", lb.Favorited)
			return nil
		},
	}
	rootCmd.AddCommand(infoCmd)

	// Toggle a favorite
	favoriteCmd := &cobra.Command{
		Use:   "favorite [name|id]",
		Short: "Add an image to the favorites, or remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			name := id
			if len(cfg.Folders) > 0 {
				if err := loadFolders(cmd.Context()); err != nil {
					return err
				}
				_, rec, err := findRecord(args[0])
				if err != nil {
					return err
				}
				id, name = rec.ID, rec.Name
			}
			if gal.ToggleFavorite(id) {
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s to favorites\n", name)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from favorites\n", name)
			}
			return nil
		},
	}
	rootCmd.AddCommand(favoriteCmd)

	// List favorites
	favoritesCmd := &cobra.Command{
		Use:   "favorites",
		Short: "List favorite ids, with names when folders are given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Folders) > 0 {
				if err := loadFolders(cmd.Context()); err != nil {
					return err
				}
			}
			names := make(map[string]string)
			for _, rec := range gal.Records() {
				names[rec.ID] = rec.Name
			}
			out := cmd.OutOrStdout()
			ids := gal.Favorites().IDs()
			if len(ids) == 0 {
				fmt.Fprintln(out, "No favorites.")
				return nil
			}
			for _, id := range ids {
				if n, ok := names[id]; ok {
					fmt.Fprintf(out, "%s\t%s\n", id, n)
				} else {
					fmt.Fprintln(out, id)
				}
			}
			return nil
		},
	}
	rootCmd.AddCommand(favoritesCmd)

	// Show or change the theme
	themeCmd := &cobra.Command{
		Use:       "theme [dark|light|toggle]",
		Short:     "Show or change the saved theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light", "toggle"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				fmt.Fprintln(out, gal.Theme())
				return nil
			}
			switch args[0] {
			case "toggle":
				fmt.Fprintln(out, gal.ToggleTheme())
			case string(prefs.Dark), string(prefs.Light):
				for gal.Theme() != prefs.Theme(args[0]) {
					gal.ToggleTheme()
				}
				fmt.Fprintln(out, gal.Theme())
			default:
				return fmt.Errorf("unknown theme %q: want dark, light or toggle", args[0])
			}
			return nil
		},
	}
	rootCmd.AddCommand(themeCmd)

	// Export the filtered view
	var (
		formatFlag string
		outputFlag string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export the images matching the filters as html, yaml or parquet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFolders(cmd.Context()); err != nil {
				return err
			}
			gal.SetAlbum(albumFlag)
			gal.SetSearch(searchFlag)
			gal.SetFavoritesOnly(favOnlyFlag)
			view := gal.View()

			if formatFlag == "parquet" {
				if outputFlag == "" || outputFlag == "-" {
					return errors.New("parquet export needs --output")
				}
				if err := export.Parquet(outputFlag, view, gal.Favorites()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s\n", len(view), outputFlag)
				return nil
			}

			w, closeFn, err := openOutput(cmd.OutOrStdout(), outputFlag)
			if err != nil {
				return err
			}
			switch formatFlag {
			case "html":
				err = export.HTML(w, "fygallery", gal.Summary(), view, gal.Favorites())
			case "yaml":
				err = export.YAML(w, view, gal.Favorites())
			default:
				err = fmt.Errorf("unknown format %q: want html, yaml or parquet", formatFlag)
			}
			if cerr := closeFn(); err == nil {
				err = cerr
			}
			return err
		},
	}
	exportCmd.Flags().StringVarP(&formatFlag, "format", "F", "html", "Output format: html, yaml or parquet")
	exportCmd.Flags().StringVarP(&outputFlag, "output", "o", "-", "Output file, - for stdout")
	exportCmd.Flags().StringVarP(&albumFlag, "album", "a", "", "Only export images of this album")
	exportCmd.Flags().StringVarP(&searchFlag, "search", "s", "", "Case-insensitive search over name and album")
	exportCmd.Flags().BoolVar(&favOnlyFlag, "favorites-only", false, "Only export favorites")
	rootCmd.AddCommand(exportCmd)

	// Save a copy of an image
	var dirFlag string
	saveCmd := &cobra.Command{
		Use:     "save [name|id]",
		Aliases: []string{"download"},
		Short:   "Save a copy of an image into a directory",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFolders(cmd.Context()); err != nil {
				return err
			}
			_, rec, err := findRecord(args[0])
			if err != nil {
				return err
			}
			dst, err := export.SaveCopy(gal.Locators(), rec, dirFlag)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", dst)
			return nil
		},
	}
	saveCmd.Flags().StringVarP(&dirFlag, "dir", "d", ".", "Directory to save into")
	rootCmd.AddCommand(saveCmd)

	// Run a slideshow on the terminal
	var (
		stepsFlag    int
		intervalFlag time.Duration
	)
	slideshowCmd := &cobra.Command{
		Use:   "slideshow",
		Short: "Print images one after another at the slideshow interval",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadFolders(cmd.Context()); err != nil {
				return err
			}
			gal.SetAlbum(albumFlag)
			if len(gal.View()) == 0 {
				return errors.New("no images to show")
			}
			if intervalFlag > 0 {
				gal.Slideshow().SetInterval(intervalFlag)
			}

			out := cmd.OutOrStdout()
			shown := make(chan catalog.ImageRecord, 1)
			unsubscribe := gal.Subscribe(func(e gallery.Event) {
				if e != gallery.EventLightbox {
					return
				}
				if lb := gal.Lightbox(); lb.Open {
					select {
					case shown <- lb.Current:
					default:
					}
				}
			})
			defer unsubscribe()

			if !gal.StartSlideshow(0) {
				return errors.New("no images to show")
			}
			defer gal.StopSlideshow()
			for i := 0; stepsFlag <= 0 || i < stepsFlag; i++ {
				select {
				case rec := <-shown:
					fmt.Fprintf(out, "%s\t%s\n", rec.Name, export.Meta(rec))
				case <-cmd.Context().Done():
					return nil
				}
			}
			return nil
		},
	}
	slideshowCmd.Flags().IntVarP(&stepsFlag, "steps", "n", 0, "Stop after this many images, 0 runs until interrupted")
	slideshowCmd.Flags().DurationVarP(&intervalFlag, "interval", "i", 0, "Time between images (default from config)")
	slideshowCmd.Flags().StringVarP(&albumFlag, "album", "a", "", "Only show images of this album")
	rootCmd.AddCommand(slideshowCmd)

	// Watch folders and reload on change
	var debounceFlag time.Duration
	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the folders whenever their images change",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := loadFolders(ctx); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, gal.Summary())

			w, err := watch.New(debounceFlag, cliLogger)
			if err != nil {
				return err
			}
			defer w.Close()
			for _, root := range folders.Roots() {
				if err := w.WatchTree(root); err != nil {
					return err
				}
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case root, ok := <-w.Notify():
					if !ok {
						return nil
					}
					if _, err := folders.Add(ctx, root); err != nil {
						logger.Warn("rescanning folder", "root", root, "error", err)
						continue
					}
					err := gal.LoadFolders(ctx, folders)
					if errors.Is(err, catalog.ErrSuperseded) {
						continue
					}
					if err != nil {
						return err
					}
					fmt.Fprintln(out, gal.Summary())
				}
			}
		},
	}
	watchCmd.Flags().DurationVar(&debounceFlag, "debounce", watch.DefaultDebounce, "Quiet period before reloading")
	rootCmd.AddCommand(watchCmd)

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", config.DefaultPath(), "Path to config file")
	rootCmd.PersistentFlags().StringSliceVarP(&folderFlags, "folder", "f", nil, "Image folder to load (repeatable, overrides config)")
	rootCmd.PersistentFlags().IntVar(&pageSizeFlag, "page-size", 0, "Images per page (default from config)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log progress messages")

	return rootCmd
}

// closeSession releases the gallery and storage of the previous run, if any.
func closeSession() {
	if gal != nil {
		if err := gal.Close(); err != nil {
			logger.Warn("closing gallery", "error", err)
		}
	}
	if kv != nil {
		if err := kv.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}
	gal, kv = nil, nil
}

// loadFolders scans every configured folder and builds the catalog.
func loadFolders(ctx context.Context) error {
	if len(cfg.Folders) == 0 {
		return errors.New("no folders given: use --folder or set folders in the config file")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for _, f := range cfg.Folders {
		if _, err := folders.Add(ctx, f); err != nil {
			return fmt.Errorf("scanning %s: %w", f, err)
		}
	}
	if err := gal.LoadFolders(ctx, folders); err != nil {
		return fmt.Errorf("loading images: %w", err)
	}
	return nil
}

// findRecord looks key up as an id, then as a relative path, then as a
// name. It returns the record's index in the current view.
func findRecord(key string) (int, catalog.ImageRecord, error) {
	view := gal.View()
	for _, match := range []func(catalog.ImageRecord) bool{
		func(r catalog.ImageRecord) bool { return r.ID == key },
		func(r catalog.ImageRecord) bool { return r.Path == filepath.ToSlash(key) },
		func(r catalog.ImageRecord) bool { return r.Name == key },
	} {
		var hits []int
		for i, r := range view {
			if match(r) {
				hits = append(hits, i)
			}
		}
		switch len(hits) {
		case 0:
			continue
		case 1:
			return hits[0], view[hits[0]], nil
		default:
			paths := make([]string, len(hits))
			for i, h := range hits {
				paths[i] = view[h].Path
			}
			return 0, catalog.ImageRecord{}, fmt.Errorf("%q is ambiguous: %s", key, strings.Join(paths, ", "))
		}
	}
	return 0, catalog.ImageRecord{}, fmt.Errorf("no image matches %q", key)
}

// lastPage returns the final page of shown.
func lastPage(shown []catalog.ImageRecord, size int) []catalog.ImageRecord {
	if size <= 0 || len(shown) <= size {
		return shown
	}
	start := (len(shown) - 1) / size * size
	return shown[start:]
}

func openOutput(stdout io.Writer, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}

func openStorage(cfg config.Config) (storage.KV, error) {
	return storage.Open(storage.Backend(cfg.Storage.Backend), cfg.Storage.Path)
}

func main() {
	rootCmd := NewRootCmd(openStorage)
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, os.Kill),
	); err != nil {
		os.Exit(1)
	}
}
