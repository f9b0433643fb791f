package models

// MediaType identifies whether a catalog item is a film or an episodic series.
type MediaType string

const (
	MediaTypeMovie  MediaType = "movie"
	MediaTypeSeries MediaType = "series"
)

// Valid reports whether the media type is one of the two known values.
func (m MediaType) Valid() bool {
	return m == MediaTypeMovie || m == MediaTypeSeries
}

// CatalogItem is a normalized media entry from the remote catalog. Items are
// immutable once fetched; the ledger attaches its own timestamp separately.
type CatalogItem struct {
	ID               int64     `json:"id"`
	MediaType        MediaType `json:"mediaType"`
	Title            string    `json:"title"`
	Overview         string    `json:"overview,omitempty"`
	ReleaseDate      string    `json:"releaseDate,omitempty"`
	GenreIDs         []int64   `json:"genreIds,omitempty"`
	Rating           float64   `json:"rating"`
	PosterPath       string    `json:"posterPath,omitempty"`
	BackdropPath     string    `json:"backdropPath,omitempty"`
	OriginalLanguage string    `json:"originalLanguage,omitempty"`
}

// CatalogPage is one page of discover results plus the reported page count.
type CatalogPage struct {
	Items      []CatalogItem
	Page       int
	TotalPages int
}

// CatalogDetail extends CatalogItem with fields only present on the detail
// endpoint.
type CatalogDetail struct {
	CatalogItem
	Tagline         string  `json:"tagline,omitempty"`
	RuntimeMinutes  int     `json:"runtimeMinutes,omitempty"`
	NumberOfSeasons int     `json:"numberOfSeasons,omitempty"`
	Status          string  `json:"status,omitempty"`
	IMDBID          string  `json:"imdbId,omitempty"`
	Genres          []Genre `json:"genres,omitempty"`
	Homepage        string  `json:"homepage,omitempty"`
}

// Genre is a named genre from the remote catalog's vocabulary.
type Genre struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CastMember is a single credited performer.
type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
	Order       int    `json:"order"`
}

// CrewMember is a single credited crew role.
type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job,omitempty"`
	Department  string `json:"department,omitempty"`
	ProfilePath string `json:"profilePath,omitempty"`
}

// Credits groups cast and crew for one title.
type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// ProviderInfo describes one streaming provider in the region's directory.
type ProviderInfo struct {
	ID       int64  `json:"providerId"`
	Name     string `json:"providerName"`
	LogoPath string `json:"logoPath,omitempty"`
	Priority int    `json:"displayPriority"`
}

// WatchProviders lists how a single title is available in one region.
type WatchProviders struct {
	Link     string         `json:"link,omitempty"`
	Flatrate []ProviderInfo `json:"flatrate,omitempty"`
	Rent     []ProviderInfo `json:"rent,omitempty"`
	Buy      []ProviderInfo `json:"buy,omitempty"`
}

// Review is a user review attached to a title.
type Review struct {
	ID        string  `json:"id"`
	Author    string  `json:"author"`
	Content   string  `json:"content"`
	Rating    float64 `json:"rating,omitempty"`
	CreatedAt string  `json:"createdAt,omitempty"`
	URL       string  `json:"url,omitempty"`
}

// Video is a trailer or clip reference hosted off-site.
type Video struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Key      string `json:"key"`
	Site     string `json:"site"`
	Type     string `json:"type"`
	Official bool   `json:"official"`
	Language string `json:"language,omitempty"`
}

// ImageRef is an opaque image identifier with its aspect metadata.
type ImageRef struct {
	FilePath    string  `json:"filePath"`
	AspectRatio float64 `json:"aspectRatio,omitempty"`
	Width       int     `json:"width,omitempty"`
	Height      int     `json:"height,omitempty"`
}

// TitleImages groups the alternate artwork for a title.
type TitleImages struct {
	Backdrops []ImageRef `json:"backdrops"`
	Posters   []ImageRef `json:"posters"`
}
