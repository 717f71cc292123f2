package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// pdfOptions mirrors the htmlrender PDF options.
type pdfOptions struct {
	Format    string         `json:"format,omitempty"`
	Margin    *marginOptions `json:"margin,omitempty"`
	Landscape bool           `json:"landscape,omitempty"`
	Base64    bool           `json:"base64"`
}

type marginOptions struct {
	Top    string `json:"top"`
	Right  string `json:"right"`
	Bottom string `json:"bottom"`
	Left   string `json:"left"`
}

// imageOptions mirrors the htmlrender image options.
type imageOptions struct {
	Type        string `json:"type,omitempty"`
	FullPage    bool   `json:"fullPage"`
	Transparent bool   `json:"transparent,omitempty"`
	Base64      bool   `json:"base64"`
}

type convertRequest struct {
	HTML    string `json:"html"`
	Options any    `json:"options"`
}

// convertResponse covers both the base64 payload and the error body.
type convertResponse struct {
	Data     string `json:"data"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
	Error    string `json:"error"`
	Code     string `json:"code"`
}

func main() {
	apiURL := os.Getenv("HTMLRENDER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:3000"
	}

	s := server.NewMCPServer(
		"htmlrender",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	pdfTool := mcp.NewTool("html_to_pdf",
		mcp.WithDescription("Render HTML markup to a PDF document with headless Chrome. Backgrounds are always printed."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("The HTML markup to render"),
		),
		mcp.WithString("format",
			mcp.Description("Paper size (default: 'A4')"),
			mcp.Enum("A0", "A1", "A2", "A3", "A4", "A5", "A6", "Letter", "Legal", "Tabloid", "Ledger"),
		),
		mcp.WithString("margin",
			mcp.Description("Margin applied to all sides as a CSS length, e.g. '1cm', '10mm', '0.5in' (default: '1cm')"),
		),
		mcp.WithBoolean("landscape",
			mcp.Description("Landscape orientation (default: false)"),
		),
	)
	s.AddTool(pdfTool, handleHTMLToPDF(apiURL))

	imageTool := mcp.NewTool("html_to_image",
		mcp.WithDescription("Render HTML markup to a PNG or JPEG screenshot with headless Chrome."),
		mcp.WithString("html",
			mcp.Required(),
			mcp.Description("The HTML markup to render"),
		),
		mcp.WithString("type",
			mcp.Description("Image encoding (default: 'png')"),
			mcp.Enum("png", "jpeg"),
		),
		mcp.WithBoolean("full_page",
			mcp.Description("Capture the full scrollable page instead of the viewport (default: true)"),
		),
		mcp.WithBoolean("transparent",
			mcp.Description("Transparent background, PNG only (default: false)"),
		),
	)
	s.AddTool(imageTool, handleHTMLToImage(apiURL))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleHTMLToPDF(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := request.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}

		opts := pdfOptions{
			Format:    request.GetString("format", ""),
			Landscape: request.GetBool("landscape", false),
			Base64:    true,
		}
		if m := request.GetString("margin", ""); m != "" {
			opts.Margin = &marginOptions{Top: m, Right: m, Bottom: m, Left: m}
		}

		resp, errResult := convert(ctx, client, apiURL+"/api/pdf/convert", convertRequest{HTML: html, Options: opts})
		if errResult != nil {
			return errResult, nil
		}

		return mcp.NewToolResultResource(
			fmt.Sprintf("Rendered %s", resp.Filename),
			mcp.BlobResourceContents{
				URI:      "file:///" + resp.Filename,
				MIMEType: resp.Type,
				Blob:     resp.Data,
			},
		), nil
	}
}

func handleHTMLToImage(apiURL string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		html, err := request.RequireString("html")
		if err != nil {
			return mcp.NewToolResultError("html is required"), nil
		}

		opts := imageOptions{
			Type:        request.GetString("type", ""),
			FullPage:    request.GetBool("full_page", true),
			Transparent: request.GetBool("transparent", false),
			Base64:      true,
		}

		resp, errResult := convert(ctx, client, apiURL+"/api/image/convert", convertRequest{HTML: html, Options: opts})
		if errResult != nil {
			return errResult, nil
		}

		return mcp.NewToolResultImage(fmt.Sprintf("Rendered %s", resp.Filename), resp.Data, resp.Type), nil
	}
}

// convert posts payload to endpoint and decodes the base64 response. Any
// failure is returned as a tool error result.
func convert(ctx context.Context, client *http.Client, endpoint string, payload convertRequest) (*convertResponse, *mcp.CallToolResult) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err))
	}

	var out convertResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		errMsg := out.Error
		if errMsg == "" {
			errMsg = resp.Status
		}
		if out.Code != "" {
			errMsg = fmt.Sprintf("[%s] %s", out.Code, errMsg)
		}
		return nil, mcp.NewToolResultError(errMsg)
	}
	return &out, nil
}
