package app

import (
	"context"
	"fmt"
	"io"

	"github.com/atomicstack/openhab-popup/internal/endpoint"
	"github.com/atomicstack/openhab-popup/internal/logging/events"
	"github.com/atomicstack/openhab-popup/internal/output"
	"github.com/atomicstack/openhab-popup/internal/session"
	"github.com/atomicstack/openhab-popup/internal/sitemap"
	"github.com/atomicstack/openhab-popup/internal/transport"
)

// Dump fetches the configured page once, without long polling, and prints
// it to w.
func Dump(ctx context.Context, cfg Config, w io.Writer, format output.Format) error {
	sess := session.New(cfg.Settings)
	client := transport.NewClient(sess, transport.Options{
		RequestTimeout:  cfg.RequestTimeout,
		LongPollTimeout: cfg.LongPollTimeout,
	})
	target, err := endpoint.Sitemap(sess.RootURL(), sess.SitemapName())
	if err != nil {
		return err
	}
	events.App.Dump(target.String(), cfg.Version)
	resp, err := client.FetchPage(ctx, transport.PageRequest{URL: target.String(), Version: cfg.Version})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", target, err)
	}
	page, err := sitemap.Decode(resp.Body, cfg.Version)
	if err != nil {
		return err
	}
	return output.Print(w, format, output.PageDump{
		URL:     target.String(),
		Version: cfg.Version,
		Page:    page,
		Icons:   iconURLs(sess.RootURL(), cfg, page.Widgets, nil),
	})
}

func iconURLs(root string, cfg Config, widgets []sitemap.Widget, out map[string]string) map[string]string {
	for _, w := range widgets {
		state := ""
		if w.Item != nil {
			state = w.Item.State
		}
		if u, err := endpoint.Icon(root, cfg.Version, w.Icon, state, cfg.IconFormat); err == nil {
			if out == nil {
				out = make(map[string]string)
			}
			out[w.ID] = u.String()
		}
		out = iconURLs(root, cfg, w.Widgets, out)
	}
	return out
}
