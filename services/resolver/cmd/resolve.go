package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/loviiin/unmark/services/resolver/internal/download"
	"github.com/loviiin/unmark/services/resolver/internal/media"
)

// Videos can be large.
const downloadTimeout = 30 * time.Minute

var (
	flagJSON     bool
	flagDownload string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <share text>",
	Short: "Resolve one share link and print the media",
	Example: `  unmark resolve "https://v.douyin.com/iRNBho6u/"
  unmark resolve --json "7.43 复制打开抖音，看看 https://v.douyin.com/iRNBho6u/ 【作品】"
  unmark resolve -d ./out https://xhslink.com/a/AbCdEf`,
	Args: cobra.MinimumNArgs(1),
	RunE: resolveRun,
}

func init() {
	resolveCmd.Flags().BoolVarP(&flagJSON, "json", "j", false, "Print the result as JSON")
	resolveCmd.Flags().StringVarP(&flagDownload, "download", "d", "", "Download the media into this directory")
}

// resolveOutput mirrors the /api/parse body.
type resolveOutput struct {
	Success  bool     `json:"success"`
	Strategy string   `json:"strategy,omitempty"`
	Title    string   `json:"title,omitempty"`
	Cover    string   `json:"cover,omitempty"`
	VideoURL string   `json:"video_url,omitempty"`
	Images   []string `json:"images"`
	Platform string   `json:"platform,omitempty"`
	Type     string   `json:"type,omitempty"`
	Files    []string `json:"files,omitempty"`
	Error    string   `json:"error,omitempty"`
}

func resolveRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.resolver.Resolve(ctx, joinArgs(args))
	if err != nil {
		if flagJSON {
			printJSON(cmd, resolveOutput{Success: false, Images: []string{}, Error: err.Error()})
		}
		return err
	}

	out := outputFrom(res)
	if flagDownload != "" {
		var progress io.Writer
		if !flagJSON {
			progress = os.Stderr
		}
		d := download.New(downloadTimeout, progress, logger)
		files, err := d.Save(ctx, &res.Result, flagDownload)
		out.Files = files
		if err != nil {
			return fmt.Errorf("download: %w", err)
		}
	}

	if flagJSON {
		printJSON(cmd, out)
		return nil
	}
	printHuman(cmd, out)
	return nil
}

func outputFrom(res *media.Resolution) resolveOutput {
	images := res.Result.Images
	if images == nil {
		images = []string{}
	}
	return resolveOutput{
		Success:  true,
		Strategy: res.Strategy,
		Title:    res.Result.Title,
		Cover:    res.Result.Cover,
		VideoURL: res.Result.VideoURL,
		Images:   images,
		Platform: string(res.Result.Platform),
		Type:     string(res.Result.Type),
	}
}

func printJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func printHuman(cmd *cobra.Command, out resolveOutput) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s [%s, %s via %s]\n", out.Title, out.Platform, out.Type, out.Strategy)
	if out.Cover != "" {
		fmt.Fprintf(w, "cover: %s\n", out.Cover)
	}
	if out.VideoURL != "" {
		fmt.Fprintf(w, "video: %s\n", out.VideoURL)
	}
	for i, img := range out.Images {
		fmt.Fprintf(w, "image %d: %s\n", i+1, img)
	}
	for _, f := range out.Files {
		fmt.Fprintf(w, "saved: %s\n", f)
	}
}

func joinArgs(args []string) string { return strings.Join(args, " ") }
