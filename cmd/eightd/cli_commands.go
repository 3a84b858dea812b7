// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"eightd/cmd/eightd/config"
	"eightd/pkg/backend"
	"eightd/pkg/evidence"
	"eightd/pkg/workflow"
	"eightd/services/qualitygate/middleware"
	"eightd/services/qualitygate/routes"
	"eightd/services/qualitygate/store"
	"eightd/services/qualitygate/validator"
)

var (
	rootCmd = &cobra.Command{
		Use:   "eightd",
		Short: "A CLI for working 8D quality complaints",
		Long: `eightd walks a quality complaint through the eight disciplines,
with AI-gated validation of every section before the workflow advances.`,
	}

	listStatus      string
	listProductLine string
	listPage        int
	filesDeleteYes  bool
	serveAddr       string
)

// -----------------------------------------------------------------------------
// complaints
// -----------------------------------------------------------------------------

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List complaints",
	RunE: func(cmd *cobra.Command, args []string) error {
		page, err := api.ListComplaints(cmd.Context(), backend.ListComplaintsParams{
			Page: listPage, Status: listStatus, ProductLine: listProductLine,
		})
		if err != nil {
			return err
		}
		if len(page.Items) == 0 {
			fmt.Println("No complaints found.")
			return nil
		}
		for _, c := range page.Items {
			line := fmt.Sprintf("%-6d %-14s %-9s %-10s %s",
				c.ID, c.Reference, c.Severity, c.Status, c.Title)
			if interactive() && c.Status == "open" {
				line = Styles.Subtitle.Render(line)
			}
			fmt.Println(line)
		}
		fmt.Println(Styles.Muted.Render(
			fmt.Sprintf("%d of %d complaints (page %d)", len(page.Items), page.Total, page.Page)))
		return nil
	},
}

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Open a new complaint",
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := promptNewComplaint()
		if err != nil {
			return err
		}
		c, err := api.CreateComplaint(cmd.Context(), *req)
		if err != nil {
			return err
		}
		printOK("Opened complaint %s (id %d) with all eight steps provisioned.", c.Reference, c.ID)
		return nil
	},
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show workflow statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := api.DashboardStats(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(Styles.Title.Render("8D Dashboard"))
		fmt.Printf("Complaints:      %d total, %d open\n", stats.TotalComplaints, stats.OpenComplaints)
		for status, n := range stats.ComplaintsByStatus {
			fmt.Printf("  %-14s %d\n", status, n)
		}
		fmt.Printf("Steps validated: %d\n", stats.StepsValidated)
		fmt.Printf("Section passes:  %.0f%%\n", stats.SectionPassRate*100)
		return nil
	},
}

// -----------------------------------------------------------------------------
// steps
// -----------------------------------------------------------------------------

var stepCmd = &cobra.Command{
	Use:   "step <complaint-id> [code]",
	Short: "Work a complaint step interactively",
	Long: `Opens the step editor TUI. Without a step code the first
not-yet-validated step is opened.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !interactive() {
			return fmt.Errorf("the step editor needs a terminal; use 'eightd edit' for scripted changes")
		}
		complaintID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid complaint id %q", args[0])
		}

		var code workflow.StepCode
		if len(args) == 2 {
			if code, err = workflow.ParseStepCode(args[1]); err != nil {
				return err
			}
		} else {
			if code, err = api.GetCurrentStep(cmd.Context(), complaintID); err != nil {
				return err
			}
		}

		model := newStepModel(api, logger.Logger, complaintID, code)
		_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
		return err
	},
}

var editCmd = &cobra.Command{
	Use:   "edit <complaint-id> <code>",
	Short: "Edit a step's fields in a quick form and save a draft",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		complaintID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid complaint id %q", args[0])
		}
		code, err := workflow.ParseStepCode(args[1])
		if err != nil {
			return err
		}
		return runQuickEdit(cmd.Context(), complaintID, code)
	},
}

// -----------------------------------------------------------------------------
// evidence files
// -----------------------------------------------------------------------------

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Manage step evidence files",
}

var filesListCmd = &cobra.Command{
	Use:   "list <step-id>",
	Short: "List a step's evidence files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid step id %q", args[0])
		}
		files, err := api.ListStepFiles(cmd.Context(), stepID)
		if err != nil {
			return err
		}
		if len(files) == 0 {
			fmt.Println("No evidence attached.")
			return nil
		}
		for _, f := range files {
			fmt.Printf("%-6d %s %-30s %8s  %s\n", f.ID, f.Icon, f.Filename, f.SizeLabel, f.UploadedAt)
		}
		return nil
	},
}

var filesUploadCmd = &cobra.Command{
	Use:   "upload <step-id> <path>...",
	Short: "Upload evidence files to a step",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid step id %q", args[0])
		}
		uploads, closers, err := openUploads(args[1:])
		defer func() {
			for _, c := range closers {
				c.Close()
			}
		}()
		if err != nil {
			return err
		}

		uploader := evidence.NewUploader(api, logger.Logger)
		results := uploader.UploadAll(cmd.Context(), stepID, uploads, uploadProgress())
		failed := 0
		for _, r := range results {
			if r.Err != nil {
				failed++
				printErr("%s: %v", r.Filename, r.Err)
				continue
			}
			printOK("%s uploaded (%s)", r.File.Filename, r.File.SizeLabel)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d files not uploaded", failed, len(results))
		}
		return nil
	},
}

var filesDeleteCmd = &cobra.Command{
	Use:   "delete <step-id> <file-id>",
	Short: "Delete an evidence file and its stored object",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid step id %q", args[0])
		}
		fileID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid file id %q", args[1])
		}

		var prompt func() (bool, error)
		if interactive() {
			prompt = func() (bool, error) {
				var ok bool
				err := huh.NewConfirm().
					Title(fmt.Sprintf("Delete evidence file %d from step %d?", fileID, stepID)).
					Description("The stored object is removed with it.").
					Value(&ok).Run()
				return ok, err
			}
		}
		proceed, err := confirmFileDelete(filesDeleteYes, prompt)
		if err != nil {
			return err
		}
		if !proceed {
			fmt.Println("Aborted.")
			return nil
		}

		if err := api.DeleteStepFile(cmd.Context(), stepID, fileID); err != nil {
			return err
		}
		printOK("File %d deleted.", fileID)
		return nil
	},
}

// confirmFileDelete gates an evidence delete. Deletes never run silently:
// either --yes was passed, or the user answered an interactive prompt.
// prompt is nil when no terminal is attached.
func confirmFileDelete(assumeYes bool, prompt func() (bool, error)) (bool, error) {
	if assumeYes {
		return true, nil
	}
	if prompt == nil {
		return false, errors.New("refusing to delete without confirmation; pass --yes when scripting")
	}
	return prompt()
}

var filesDownloadCmd = &cobra.Command{
	Use:   "download <step-id> <file-id> [out-path]",
	Short: "Download an evidence file",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		stepID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid step id %q", args[0])
		}
		fileID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid file id %q", args[1])
		}
		body, err := api.DownloadStepFile(cmd.Context(), stepID, fileID)
		if err != nil {
			return err
		}
		defer body.Close()

		outPath := fmt.Sprintf("file_%d", fileID)
		if len(args) == 3 {
			outPath = args[2]
		}
		out, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer out.Close()
		n, err := io.Copy(out, body)
		if err != nil {
			return err
		}
		printOK("Wrote %s (%s)", outPath, evidence.HumanSize(n))
		return nil
	},
}

// openUploads stats and opens each path, deriving the MIME type from the
// extension. The local acceptance gate runs inside the uploader.
func openUploads(paths []string) ([]evidence.Upload, []io.Closer, error) {
	var uploads []evidence.Upload
	var closers []io.Closer
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return uploads, closers, err
		}
		f, err := os.Open(p)
		if err != nil {
			return uploads, closers, err
		}
		closers = append(closers, f)
		mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(p)))
		uploads = append(uploads, evidence.Upload{
			Filename: filepath.Base(p),
			MimeType: mimeType,
			Size:     info.Size(),
			Reader:   f,
		})
	}
	return uploads, closers, nil
}

// uploadProgress draws simulated per-file progress on a terminal and stays
// silent when piped.
func uploadProgress() evidence.ProgressFunc {
	if !interactive() {
		return nil
	}
	return func(filename string, pct int) {
		if pct == 100 {
			fmt.Printf("\r%-30s 100%%\n", filename)
			return
		}
		fmt.Printf("\r%-30s %3d%%", filename, pct)
	}
}

// -----------------------------------------------------------------------------
// development stub backend
// -----------------------------------------------------------------------------

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the in-memory quality gate backend",
	Long: `Runs the development backend: complaint and step storage in memory,
section validation by the configured validator, /metrics for Prometheus.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		gin.SetMode(gin.ReleaseMode)
		router := gin.New()
		router.Use(gin.Recovery())

		v := buildValidator()
		metrics := middleware.InitMetrics()
		routes.SetupRoutes(router, store.New(), v, logger.Logger, metrics)

		fmt.Printf("quality gate listening on %s\n", serveAddr)
		return router.Run(serveAddr)
	},
}

// buildValidator picks the section validator from config. The OpenAI mode
// needs OPENAI_API_KEY; without it the stub falls back to the heuristic so
// 'eightd serve' always works out of the box.
func buildValidator() validator.SectionValidator {
	cfg := config.Global.Validator
	if cfg.Type == "openai" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return validator.NewOpenAI(key, cfg.BaseURL, cfg.Model, logger.Logger)
		}
		printErr("validator type is openai but OPENAI_API_KEY is unset, using the heuristic")
	}
	return validator.Heuristic{}
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by complaint status")
	listCmd.Flags().StringVar(&listProductLine, "product-line", "", "filter by product line")
	listCmd.Flags().IntVar(&listPage, "page", 1, "page number")
	filesDeleteCmd.Flags().BoolVar(&filesDeleteYes, "yes", false, "delete without asking for confirmation")
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8088", "listen address")

	filesCmd.AddCommand(filesListCmd)
	filesCmd.AddCommand(filesUploadCmd)
	filesCmd.AddCommand(filesDeleteCmd)
	filesCmd.AddCommand(filesDownloadCmd)

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(stepCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(serveCmd)
}
