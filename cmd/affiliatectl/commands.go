package main

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"affiliate_shoppe/internal/crawler"
	"affiliate_shoppe/internal/model"
	"affiliate_shoppe/internal/shortener"
	"affiliate_shoppe/internal/storage"
)

func newCrawlCommand(ctx *commandContext) *cobra.Command {
	var subs string
	cmd := &cobra.Command{
		Use:       "crawl [forum|feed|rss|all]",
		Short:     "Trigger a crawl",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"forum", "feed", "rss", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			source := "all"
			if len(args) == 1 {
				source = args[0]
			}
			path := "/api/crawl/" + url.PathEscape(source)

			var summaries []model.CrawlSummary
			var payload any
			switch source {
			case "all":
				var res crawler.AllSummary
				if err := ctx.api().do(cmd.Context(), http.MethodGet, path, nil, &res); err != nil {
					return err
				}
				for _, s := range res.Results {
					summaries = append(summaries, *s)
				}
				sort.Slice(summaries, func(i, j int) bool { return summaries[i].Source < summaries[j].Source })
				payload = res
			case "forum", "feed", "rss":
				if source == "feed" && subs != "" {
					path += "?" + url.Values{"subs": {subs}}.Encode()
				}
				var res model.CrawlSummary
				if err := ctx.api().do(cmd.Context(), http.MethodGet, path, nil, &res); err != nil {
					return err
				}
				summaries = append(summaries, res)
				payload = res
			default:
				return fmt.Errorf("unknown source %q, use: forum, feed, rss, all", source)
			}

			return emit(ctx, cmd, payload, func() listing {
				rows := make([][]string, 0, len(summaries))
				for _, s := range summaries {
					rows = append(rows, []string{string(s.Source), strconv.Itoa(s.Total), strconv.Itoa(s.New), s.Error})
				}
				return listing{Columns: crawlColumns, Rows: rows}
			})
		},
	}
	cmd.Flags().StringVar(&subs, "subs", "", "Comma-separated communities for the feed source")
	return cmd
}

func newThreadsCommand(ctx *commandContext) *cobra.Command {
	var source string
	var limit, offset int
	cmd := &cobra.Command{
		Use:   "threads",
		Short: "List crawled threads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"limit": {strconv.Itoa(limit)}, "offset": {strconv.Itoa(offset)}}
			if source != "" {
				q.Set("source", source)
			}
			var res struct {
				Threads []model.Thread `json:"threads"`
				Total   int            `json:"total"`
			}
			if err := ctx.api().do(cmd.Context(), http.MethodGet, "/api/threads?"+q.Encode(), nil, &res); err != nil {
				return err
			}
			return emit(ctx, cmd, res, func() listing {
				rows := make([][]string, 0, len(res.Threads))
				for _, t := range res.Threads {
					rows = append(rows, []string{
						t.ID, string(t.Source), ellipsize(t.Title, 50),
						strconv.FormatInt(t.Replies, 10), t.Views, t.CrawledAt,
					})
				}
				return listing{Columns: threadColumns, Rows: rows, Total: res.Total}
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "Filter by source (forum, feed, rss)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum threads to show (1-200)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Threads to skip")
	return cmd
}

func newCampaignsCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "campaigns",
		Short: "List campaigns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{"limit": {strconv.Itoa(limit)}}
			if status != "" {
				q.Set("status", status)
			}
			var res struct {
				Campaigns []model.Campaign `json:"campaigns"`
				Total     int              `json:"total"`
			}
			if err := ctx.api().do(cmd.Context(), http.MethodGet, "/api/campaigns?"+q.Encode(), nil, &res); err != nil {
				return err
			}
			return emit(ctx, cmd, res, func() listing {
				rows := make([][]string, 0, len(res.Campaigns))
				for _, c := range res.Campaigns {
					rows = append(rows, []string{
						c.ID, string(c.Status), ellipsize(c.ProductName, 30),
						ellipsize(c.BaitContent, 40), c.CreatedAt, c.PostID,
					})
				}
				return listing{Columns: campaignColumns, Rows: rows, Total: res.Total}
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (draft, approved, posted, failed)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum campaigns to show (1-200)")
	cmd.AddCommand(newCampaignStatusCommand(ctx))
	return cmd
}

func newCampaignStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status <campaign-id> <status>",
		Short: "Set a campaign's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Campaign model.Campaign `json:"campaign"`
			}
			body := map[string]string{"status": args[1]}
			if err := ctx.api().do(cmd.Context(), http.MethodPatch, "/api/campaigns/"+url.PathEscape(args[0]), body, &res); err != nil {
				return err
			}
			return emitCampaign(ctx, cmd, &res.Campaign)
		},
	}
}

func newPublishCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "publish <campaign-id>",
		Short: "Publish an approved campaign to the Telegram channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				Campaign model.Campaign `json:"campaign"`
			}
			path := "/api/campaigns/" + url.PathEscape(args[0]) + "/publish"
			if err := ctx.api().do(cmd.Context(), http.MethodPost, path, nil, &res); err != nil {
				return err
			}
			return emitCampaign(ctx, cmd, &res.Campaign)
		},
	}
}

func emitCampaign(ctx *commandContext, cmd *cobra.Command, c *model.Campaign) error {
	return emit(ctx, cmd, c, func() listing {
		return listing{
			Columns: campaignResultColumns,
			Rows:    [][]string{{c.ID, string(c.Status), c.PostID, c.PostedAt, c.ErrorMsg}},
		}
	})
}

func newLinksCommand(ctx *commandContext) *cobra.Command {
	var collection string
	cmd := &cobra.Command{
		Use:   "links",
		Short: "List affiliate links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/links"
			if collection != "" {
				path += "?" + url.Values{"collection": {collection}}.Encode()
			}
			var res struct {
				Links []model.AffiliateLink `json:"links"`
				Total int                   `json:"total"`
			}
			if err := ctx.api().do(cmd.Context(), http.MethodGet, path, nil, &res); err != nil {
				return err
			}
			return emit(ctx, cmd, res, func() listing {
				rows := make([][]string, 0, len(res.Links))
				for _, l := range res.Links {
					rows = append(rows, []string{
						l.ID, ellipsize(l.Name, 30), l.ShortenedURL, l.Shortener,
						l.CollectionName, strconv.FormatInt(l.Clicks, 10),
					})
				}
				return listing{Columns: linkColumns, Rows: rows, Total: res.Total}
			})
		},
	}
	cmd.Flags().StringVar(&collection, "collection", "", "Filter by collection name")
	return cmd
}

func newShortenCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "shorten <url>",
		Short: "Shorten a URL without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res shortener.Result
			path := "/api/links/shorten?" + url.Values{"url": {args[0]}}.Encode()
			if err := ctx.api().do(cmd.Context(), http.MethodPost, path, nil, &res); err != nil {
				return err
			}
			return emit(ctx, cmd, res, func() listing {
				return listing{Columns: shortenColumns, Rows: [][]string{{res.Service, res.Shortened}}}
			})
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var res struct {
				storage.Stats
				Counters  map[string]any `json:"counters"`
				Gemini    string         `json:"gemini"`
				Publisher string         `json:"publisher"`
				Database  string         `json:"database"`
			}
			if err := ctx.api().do(cmd.Context(), http.MethodGet, "/api/stats", nil, &res); err != nil {
				return err
			}
			return emit(ctx, cmd, res, func() listing {
				rows := [][]string{
					{"threads (forum)", strconv.Itoa(res.Forum)},
					{"threads (feed)", strconv.Itoa(res.Feed)},
					{"threads (rss)", strconv.Itoa(res.RSS)},
					{"threads (total)", strconv.Itoa(res.TotalThreads)},
					{"campaigns (draft)", strconv.Itoa(res.Campaigns.Draft)},
					{"campaigns (approved)", strconv.Itoa(res.Campaigns.Approved)},
					{"campaigns (posted)", strconv.Itoa(res.Campaigns.Posted)},
					{"campaigns (failed)", strconv.Itoa(res.Campaigns.Failed)},
					{"campaigns (total)", strconv.Itoa(res.Campaigns.Total)},
					{"links", strconv.Itoa(res.Links)},
				}
				keys := make([]string, 0, len(res.Counters))
				for k := range res.Counters {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					rows = append(rows, []string{"counter " + k, fmt.Sprint(res.Counters[k])})
				}
				rows = append(rows,
					[]string{"gemini", res.Gemini},
					[]string{"publisher", res.Publisher},
					[]string{"database", res.Database},
				)
				return listing{Columns: statsColumns, Rows: rows}
			})
		},
	}
}

func ellipsize(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
