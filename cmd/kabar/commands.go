package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/kabar/internal/api"
	"github.com/kalambet/kabar/internal/category"
	"github.com/kalambet/kabar/internal/config"
	"github.com/kalambet/kabar/internal/corpus"
	"github.com/kalambet/kabar/internal/extract"
)

// document is an article assembled from --title, --body, --file and
// positional arguments.
type document struct {
	Title string
	Body  string
}

func addDocumentFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "article title")
	cmd.Flags().String("body", "", "article body")
	cmd.Flags().String("file", "", "read the body from a text, HTML or PDF file")
}

// readDocument builds the article for classify, submit and add. Positional
// arguments are joined into the body when --body and --file are absent.
func readDocument(cmd *cobra.Command, args []string) (document, error) {
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")
	file, _ := cmd.Flags().GetString("file")

	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return document{}, fmt.Errorf("reading file: %w", err)
		}
		text, err := extract.Text(filepath.Base(file), data)
		if err != nil {
			return document{}, err
		}
		body = text
	case body == "" && len(args) > 0:
		body = strings.Join(args, " ")
	}

	if strings.TrimSpace(title) == "" && strings.TrimSpace(body) == "" {
		return document{}, fmt.Errorf("one of --title, --body, --file or article text is required")
	}
	return document{Title: title, Body: body}, nil
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify [text...]",
	Short: "Predict the category of an article without storing it",
	Long: `Predict the category of an article without storing it.

Examples:
  kabar classify "Timnas menang di laga final"
  kabar classify --title "Harga cabai naik" --body "Inflasi pangan meningkat"
  kabar classify --file ./artikel.pdf`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		p, err := classifyDocument(cmd.Context(), client, doc)
		if isErrorType(err, "not_ready") {
			printWarning("No model yet. Add labeled news or run \"kabar train\" first.")
		}
		if err != nil {
			return err
		}

		fmt.Printf("%s  %s\n", colorize(colorBold, p.Category), formatConfidence(p.Confidence))
		printStatus("Generation", "%d", p.Generation)
		return nil
	},
}

func classifyDocument(ctx context.Context, c *apiClient, doc document) (api.ClassifyResponse, error) {
	var p api.ClassifyResponse
	resp, err := c.post(ctx, "/classify", api.ClassifyRequest{Title: doc.Title, Body: doc.Body})
	if err != nil {
		return p, err
	}
	return p, decodeJSON(resp, &p)
}

func init() {
	addDocumentFlags(classifyCmd)
}

// --- submit ---

var submitCmd = &cobra.Command{
	Use:   "submit [text...]",
	Short: "Classify an article, store it and retrain",
	Long: `Classify an article, store it under the predicted category and retrain.

Examples:
  kabar submit --title "Bank sentral tahan suku bunga" --body "Rupiah stabil"
  kabar submit --file ./berita.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(cmd, args)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		sub, err := submitDocument(cmd.Context(), client, doc)
		if err != nil {
			return err
		}

		printSuccess("Stored %s as %s (%s)", sub.ID, colorize(colorBold, sub.Category), formatConfidence(sub.Confidence))
		return nil
	},
}

func submitDocument(ctx context.Context, c *apiClient, doc document) (api.SubmitResponse, error) {
	var sub api.SubmitResponse
	resp, err := c.post(ctx, "/news", api.SubmitRequest{Title: doc.Title, Body: doc.Body})
	if err != nil {
		return sub, err
	}
	return sub, decodeJSON(resp, &sub)
}

func init() {
	addDocumentFlags(submitCmd)
}

// --- add ---

var addCmd = &cobra.Command{
	Use:   "add [text...]",
	Short: "Store an article under a known category and retrain",
	Long: `Store an article under a known category and retrain.

Examples:
  kabar add --category Olahraga --title "Timnas juara" --body "Gol di menit akhir"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("category")
		if label == "" {
			return fmt.Errorf("--category is required")
		}
		doc, err := readDocument(cmd, args)
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		n, err := addLabeled(cmd.Context(), client, corpus.LabeledInput{Title: doc.Title, Body: doc.Body, Label: label})
		if err != nil {
			return err
		}

		printSuccess("Stored %s as %s", n.ID, n.Category)
		return nil
	},
}

func addLabeled(ctx context.Context, c *apiClient, in corpus.LabeledInput) (api.NewsResponse, error) {
	var n api.NewsResponse
	resp, err := c.post(ctx, "/news/labeled", in)
	if err != nil {
		return n, err
	}
	return n, decodeJSON(resp, &n)
}

func init() {
	addDocumentFlags(addCmd)
	addCmd.Flags().String("category", "", "category label (required)")
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import labeled articles from a YAML or JSON file",
	Long: `Import labeled articles from a YAML or JSON file in one transaction.

The file is a list of {title, body, category} entries. Every entry is
validated before anything is stored; the model retrains once.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := readLabeledFile(args[0])
		if err != nil {
			return err
		}
		if len(items) == 0 {
			printWarning("%s contains no articles", args[0])
			return nil
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := importLabeled(cmd.Context(), client, items)
		if err != nil {
			return err
		}

		printSuccess("Imported %d articles", res.Imported)
		return nil
	},
}

func readLabeledFile(path string) ([]corpus.LabeledInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	items, err := corpus.LoadLabeled(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return items, nil
}

func importLabeled(ctx context.Context, c *apiClient, items []corpus.LabeledInput) (api.ImportResponse, error) {
	var res api.ImportResponse
	resp, err := c.post(ctx, "/news/labeled/batch", items)
	if err != nil {
		return res, err
	}
	return res, decodeJSON(resp, &res)
}

// --- news ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List stored articles, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, _ := cmd.Flags().GetString("category")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		items, err := listNews(cmd.Context(), client, cat, limit, offset)
		if err != nil {
			return err
		}

		if len(items) == 0 {
			fmt.Println("No news found.")
			return nil
		}

		for _, n := range items {
			fmt.Printf("%s  %-10s %6s  %s\n",
				colorize(colorCyan, n.ID),
				n.Category,
				formatConfidence(n.Confidence),
				truncate(n.Title, 70),
			)
		}
		return nil
	},
}

func listNews(ctx context.Context, c *apiClient, cat string, limit, offset int) ([]api.NewsResponse, error) {
	path := "/news"
	if cat != "" {
		path += "/" + url.PathEscape(cat)
	}
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))

	resp, err := c.get(ctx, path+"?"+q.Encode())
	if err != nil {
		return nil, err
	}
	var items []api.NewsResponse
	return items, decodeJSON(resp, &items)
}

func init() {
	newsCmd.Flags().String("category", "", "only list this category")
	newsCmd.Flags().Int("limit", 20, "maximum number of articles to list")
	newsCmd.Flags().Int("offset", 0, "number of articles to skip")
}

// --- stats ---

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show the number of stored articles per category",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		stats, err := fetchStats(cmd.Context(), client)
		if err != nil {
			return err
		}

		total, most := 0, 0
		for _, s := range stats {
			total += s.Count
			if s.Count > most {
				most = s.Count
			}
		}
		for _, s := range stats {
			fmt.Printf("  %-12s %5d  %s\n", s.Category, s.Count, colorize(colorCyan, bar(s.Count, most, 30)))
		}
		fmt.Printf("  %-12s %5d\n", colorize(colorBold, "Total"), total)
		return nil
	},
}

func fetchStats(ctx context.Context, c *apiClient) ([]category.Count, error) {
	resp, err := c.get(ctx, "/categories/stats")
	if err != nil {
		return nil, err
	}
	var stats []category.Count
	return stats, decodeJSON(resp, &stats)
}

// --- train ---

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Retrain the model from the full corpus",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		res, err := trainModel(cmd.Context(), client)
		if err != nil {
			return err
		}

		if res.Coalesced {
			printSuccess("Generation %d already covers the corpus", res.Generation)
		} else {
			printSuccess("Published generation %d", res.Generation)
		}
		printStatus("Documents", "%d", res.Documents)
		if res.Skipped > 0 {
			printStatus("Skipped", "%d", res.Skipped)
		}
		printStatus("Duration", "%dms", res.DurationMS)
		return nil
	},
}

func trainModel(ctx context.Context, c *apiClient) (api.TrainResponse, error) {
	var res api.TrainResponse
	resp, err := c.post(ctx, "/train", nil)
	if err != nil {
		return res, err
	}
	return res, decodeJSON(resp, &res)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
