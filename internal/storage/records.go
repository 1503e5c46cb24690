package storage

import (
	"affiliate_shoppe/internal/docstore"
	"affiliate_shoppe/internal/model"
)

func threadRecord(t *model.Thread) docstore.Record {
	return docstore.Record{
		"source":     string(t.Source),
		"title":      t.Title,
		"url":        t.URL,
		"author":     t.Author,
		"replies":    t.Replies,
		"views":      t.Views,
		"time_text":  t.TimeText,
		"prefix":     t.Prefix,
		"content":    t.Content,
		"thumbnail":  t.Thumbnail,
		"score":      t.Score,
		"crawled_at": t.CrawledAt,
		"sent_to_ai": t.SentToAI,
		"deleted":    t.Deleted,
	}
}

func threadFromRecord(rec docstore.Record) model.Thread {
	return model.Thread{
		ID:        rec.String(docstore.IDField),
		Source:    model.Source(rec.String("source")),
		Title:     rec.String("title"),
		URL:       rec.String("url"),
		Author:    rec.String("author"),
		Replies:   rec.Int("replies"),
		Views:     rec.String("views"),
		TimeText:  rec.String("time_text"),
		Prefix:    rec.String("prefix"),
		Content:   rec.String("content"),
		Thumbnail: rec.String("thumbnail"),
		Score:     rec.Int("score"),
		CrawledAt: rec.String("crawled_at"),
		SentToAI:  rec.Bool("sent_to_ai"),
		Deleted:   rec.Bool("deleted"),
	}
}

func campaignRecord(c *model.Campaign) docstore.Record {
	return docstore.Record{
		"bait_content":     c.BaitContent,
		"hook_comment":     c.HookComment,
		"product_name":     c.ProductName,
		"product_link":     c.ProductLink,
		"shortened_link":   c.ShortenedLink,
		"page_persona":     c.PagePersona,
		"source_thread_id": c.SourceThreadID,
		"suggested_image":  c.SuggestedImage,
		"status":           string(c.Status),
		"post_id":          c.PostID,
		"created_at":       c.CreatedAt,
		"posted_at":        c.PostedAt,
		"error_msg":        c.ErrorMsg,
	}
}

func campaignFromRecord(rec docstore.Record) model.Campaign {
	return model.Campaign{
		ID:             rec.String(docstore.IDField),
		BaitContent:    rec.String("bait_content"),
		HookComment:    rec.String("hook_comment"),
		ProductName:    rec.String("product_name"),
		ProductLink:    rec.String("product_link"),
		ShortenedLink:  rec.String("shortened_link"),
		PagePersona:    rec.String("page_persona"),
		SourceThreadID: rec.String("source_thread_id"),
		SuggestedImage: rec.String("suggested_image"),
		Status:         model.CampaignStatus(rec.String("status")),
		PostID:         rec.String("post_id"),
		CreatedAt:      rec.String("created_at"),
		PostedAt:       rec.String("posted_at"),
		ErrorMsg:       rec.String("error_msg"),
	}
}

func linkRecord(l *model.AffiliateLink) docstore.Record {
	return docstore.Record{
		"name":            l.Name,
		"original_url":    l.OriginalURL,
		"shortened_url":   l.ShortenedURL,
		"shortener":       l.Shortener,
		"collection_name": l.CollectionName,
		"clicks":          l.Clicks,
		"orders":          l.Orders,
		"commission":      l.Commission,
		"created_at":      l.CreatedAt,
	}
}

func linkFromRecord(rec docstore.Record) model.AffiliateLink {
	return model.AffiliateLink{
		ID:             rec.String(docstore.IDField),
		Name:           rec.String("name"),
		OriginalURL:    rec.String("original_url"),
		ShortenedURL:   rec.String("shortened_url"),
		Shortener:      rec.String("shortener"),
		CollectionName: rec.String("collection_name"),
		Clicks:         rec.Int("clicks"),
		Orders:         rec.Int("orders"),
		Commission:     rec.Float("commission"),
		CreatedAt:      rec.String("created_at"),
	}
}
