package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/mediamesh/mediamesh/core/mesh"
)

// call performs one request against a node surface and prints the JSON
// response body, indented, to stdout. Non-2xx responses become errors so
// the exit code reflects them.
func call(ctx *cli.Context, method, rawURL string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx.Context, method, rawURL, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := ctx.String("token"); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	var pretty bytes.Buffer
	if json.Indent(&pretty, raw, "", "  ") == nil {
		fmt.Println(pretty.String())
	} else {
		fmt.Println(string(raw))
	}

	if res.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, rawURL, res.Status)
	}

	return nil
}

var mediaAddCmd = &cli.Command{
	Name:  "media-add",
	Usage: "Register a media asset in the catalog",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "title",
			Required: true,
			Usage:    "Display title of the asset",
		},
		&cli.StringFlag{
			Name:  "id",
			Usage: "Asset id (generated when omitted)",
		},
		&cli.StringFlag{
			Name:  "high",
			Usage: "Source file path for the high quality tier",
		},
		&cli.StringFlag{
			Name:  "low",
			Usage: "Source file path for the low quality tier",
		},
	},
	Action: func(ctx *cli.Context) error {
		paths := map[string]string{}
		if p := ctx.String("high"); p != "" {
			paths["high"] = p
		}
		if p := ctx.String("low"); p != "" {
			paths["low"] = p
		}

		payload := map[string]any{
			"id":        ctx.String("id"),
			"title":     ctx.String("title"),
			"filePaths": paths,
		}

		return call(ctx, http.MethodPost, ctx.String("api-url")+"/api/admin/media", payload)
	},
}

var chunkCmd = &cli.Command{
	Name:      "chunk",
	Usage:     "Split a media tier's source file into chunks",
	ArgsUsage: "<media-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "quality",
			Value: "high",
			Usage: "Quality tier to chunk",
		},
		&cli.Int64Flag{
			Name:  "chunk-size",
			Usage: "Chunk size in bytes (server default when omitted)",
		},
	},
	Action: func(ctx *cli.Context) error {
		mediaID := ctx.Args().First()
		if mediaID == "" {
			return fmt.Errorf("media id argument is required")
		}

		q := url.Values{}
		q.Set("quality", ctx.String("quality"))
		if size := ctx.Int64("chunk-size"); size > 0 {
			q.Set("chunkSize", fmt.Sprint(size))
		}

		target := fmt.Sprintf("%s/api/admin/chunk/%s?%s",
			ctx.String("api-url"), url.PathEscape(mediaID), q.Encode())

		return call(ctx, http.MethodPost, target, nil)
	},
}

var packageCmd = &cli.Command{
	Name:      "package",
	Usage:     "Run the packaging pipeline and mirror output to object storage",
	ArgsUsage: "<media-id>",
	Action: func(ctx *cli.Context) error {
		mediaID := ctx.Args().First()
		if mediaID == "" {
			return fmt.Errorf("media id argument is required")
		}

		target := fmt.Sprintf("%s/api/admin/package/%s",
			ctx.String("api-url"), url.PathEscape(mediaID))

		return call(ctx, http.MethodPost, target, nil)
	},
}

var backfillCmd = &cli.Command{
	Name:  "backfill",
	Usage: "Mirror on-disk chunk files into object storage",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "media",
			Usage: "Restrict the backfill to one media id",
		},
		&cli.StringFlag{
			Name:  "resolution",
			Value: "1080p",
			Usage: "Resolution label recorded in object names",
		},
	},
	Action: func(ctx *cli.Context) error {
		q := url.Values{}
		if m := ctx.String("media"); m != "" {
			q.Set("media", m)
		}
		q.Set("resolution", ctx.String("resolution"))

		target := ctx.String("api-url") + "/api/admin/backfill?" + q.Encode()

		return call(ctx, http.MethodPost, target, nil)
	},
}

var fetchCmd = &cli.Command{
	Name:      "fetch",
	Usage:     "Fetch one chunk from a peer's data endpoint",
	ArgsUsage: "<media-id> <index>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "peer-addr",
			Required: true,
			Usage:    "host:port of the peer data endpoint",
		},
		&cli.StringFlag{
			Name:  "out",
			Usage: "Output file (stdout when omitted)",
		},
	},
	Action: func(ctx *cli.Context) error {
		mediaID := ctx.Args().Get(0)
		indexArg := ctx.Args().Get(1)
		if mediaID == "" || indexArg == "" {
			return fmt.Errorf("media id and chunk index arguments are required")
		}

		index, err := strconv.Atoi(indexArg)
		if err != nil || index < 0 {
			return fmt.Errorf("invalid chunk index %q", indexArg)
		}

		data, err := mesh.FetchChunk(ctx.String("peer-addr"), mediaID, index)
		if err != nil {
			return err
		}

		if out := ctx.String("out"); out != "" {
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			log.Infow("fetch", "status", "chunk written", "media", mediaID,
				"index", index, "bytes", len(data), "out", out)
			return nil
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}

var peersCmd = &cli.Command{
	Name:  "peers",
	Usage: "List live peers known to the mesh coordinator",
	Action: func(ctx *cli.Context) error {
		return call(ctx, http.MethodGet, ctx.String("mesh-url")+"/mesh/peers", nil)
	},
}

var chunkInfoCmd = &cli.Command{
	Name:      "chunk-info",
	Usage:     "Show chunk availability for a media item",
	ArgsUsage: "<media-id>",
	Action: func(ctx *cli.Context) error {
		mediaID := ctx.Args().First()
		if mediaID == "" {
			return fmt.Errorf("media id argument is required")
		}

		q := url.Values{}
		q.Set("media", mediaID)

		target := ctx.String("mesh-url") + "/mesh/chunk-info?" + q.Encode()

		return call(ctx, http.MethodGet, target, nil)
	},
}
