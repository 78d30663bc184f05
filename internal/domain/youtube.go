package domain

import (
	"fmt"

	"cloud.google.com/go/bigquery"
)

// Silver table names in the warehouse dataset.
const (
	CategoriesTable = "silver_video_categories"
	LinksTable      = "silver_video_links"
	TrendingTable   = "silver_trending_videos"
)

// Category is one cleaned YouTube video category.
type Category struct {
	CategoryID bigquery.NullInt64  `bigquery:"categoryId"`
	Title      bigquery.NullString `bigquery:"title"`
}

// VideoLink maps a trending video id to its link. Either side may be null
// after the outer join.
type VideoLink struct {
	VideoID   bigquery.NullString `bigquery:"video_id"`
	LinkVideo bigquery.NullString `bigquery:"link_video"`
}

// TrendingVideo is one cleaned trending-chart row for a month.
type TrendingVideo struct {
	VideoID          bigquery.NullString    `bigquery:"video_id"`
	Title            bigquery.NullString    `bigquery:"title"`
	PublishedAt      bigquery.NullTimestamp `bigquery:"publishedAt"`
	ChannelID        bigquery.NullString    `bigquery:"channelId"`
	ChannelTitle     bigquery.NullString    `bigquery:"channelTitle"`
	CategoryID       bigquery.NullInt64     `bigquery:"categoryId"`
	TrendingDate     bigquery.NullTimestamp `bigquery:"trending_date"`
	Tags             bigquery.NullString    `bigquery:"tags"`
	ViewCount        bigquery.NullInt64     `bigquery:"view_count"`
	Likes            bigquery.NullInt64     `bigquery:"likes"`
	Dislikes         bigquery.NullInt64     `bigquery:"dislikes"`
	CommentCount     bigquery.NullInt64     `bigquery:"comment_count"`
	ThumbnailLink    bigquery.NullString    `bigquery:"thumbnail_link"`
	CommentsDisabled bigquery.NullString    `bigquery:"comments_disabled"`
	RatingsDisabled  bigquery.NullString    `bigquery:"ratings_disabled"`
	Description      bigquery.NullString    `bigquery:"description"`

	// PartitionKey is the YYYY-MM month the row was materialized for.
	PartitionKey string `bigquery:"partition_key"`
}

// SchemaFor infers the BigQuery schema of a silver table.
func SchemaFor(table string) (bigquery.Schema, error) {
	var row interface{}
	switch table {
	case CategoriesTable:
		row = Category{}
	case LinksTable:
		row = VideoLink{}
	case TrendingTable:
		row = TrendingVideo{}
	default:
		return nil, fmt.Errorf("SchemaFor: unknown table %q", table)
	}
	schema, err := bigquery.InferSchema(row)
	if err != nil {
		return nil, fmt.Errorf("SchemaFor: inferring %s: %w", table, err)
	}
	return schema, nil
}
