package pipeline

// Column names of the bronze YouTube datasets.
const (
	ColCategoryID    = "categoryId"
	ColVideoID       = "video_id"
	ColLinkVideoID   = "videoId"
	ColLinkVideo     = "link_video"
	ColPublishedAt   = "publishedAt"
	ColTrendingDate  = "trending_date"
	ColViewCount     = "view_count"
	ColLikes         = "likes"
	ColDislikes      = "dislikes"
	ColCommentCount  = "comment_count"
	ColThumbnailLink = "thumbnail_link"
)

// Thumbnail suffix tokens. The leading slash keeps the rewrite from matching
// inside "maxresdefault.jpg" itself.
const (
	DefaultThumbnailSuffix = "/default.jpg"
	MaxResThumbnailSuffix  = "/maxresdefault.jpg"
)

// Output labels reported with each silver dataset.
const (
	LabelCategories = "videoCategory_clean.pq"
	LabelLinks      = "linkVideos_clean.pq"
	LabelTrending   = "trending_clean.pq"
)

// Stage names used in logs and errors.
const (
	StageCategories = "category_normalizer"
	StageLinks      = "link_reconciler"
	StageTrending   = "trending_normalizer"
)

// Named inputs inside a PipelineState.
const (
	InputCategories = "categories"
	InputLinks      = "links"
	InputTrending   = "trending"
)

// trendingIntColumns are cast to integers in this order.
var trendingIntColumns = []string{
	ColCategoryID,
	ColViewCount,
	ColLikes,
	ColDislikes,
	ColCommentCount,
}
