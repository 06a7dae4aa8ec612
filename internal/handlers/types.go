package handlers

import (
	"time"

	"github.com/serroba/linkly/internal/shortlink"
)

// LinkView is the wire representation of a short link. Click history is
// deliberately omitted; it is exposed in aggregate through the stats
// endpoint.
type LinkView struct {
	ID           string     `doc:"Link identifier" json:"id"`
	OriginalURL  string     `doc:"The original URL" example:"https://example.com/very/long/path" json:"originalUrl"`
	ShortCode    string     `doc:"The short code" example:"abc123" json:"shortCode"`
	ShortURL     string     `doc:"The full short URL" example:"http://localhost:8888/r/abc123" json:"shortUrl"`
	CustomAlias  string     `doc:"User-chosen alias, if any" json:"customAlias,omitempty"`
	Title        string     `json:"title,omitempty"`
	Description  string     `json:"description,omitempty"`
	Keywords     []string   `json:"keywords,omitempty"`
	PreviewImage string     `json:"previewImage,omitempty"`
	Domain       string     `json:"domain,omitempty"`
	OwnerID      string     `json:"userId"`
	IsActive     bool       `json:"isActive"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Clicks       int64      `json:"clicks"`
	LastClicked  *time.Time `json:"lastClicked,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// CreateLinkRequest is the request body for creating a short link.
type CreateLinkRequest struct {
	Body struct {
		OriginalURL string     `doc:"The URL to shorten" example:"https://example.com/very/long/path" json:"originalUrl"`
		CustomAlias string     `doc:"Custom alias (3-20 letters, digits, hyphens)" example:"my-link" json:"customAlias,omitempty"`
		Title       string     `json:"title,omitempty"`
		Description string     `json:"description,omitempty"`
		ExpiresAt   *time.Time `doc:"Expiry timestamp; the link stops resolving past it" json:"expiresAt,omitempty"`
		UserID      string     `doc:"Owner account id" json:"userId"`
	}
}

// CreateLinkResponse is the response for a successfully created short link.
type CreateLinkResponse struct {
	Body struct {
		Success  bool     `json:"success"`
		Data     LinkView `json:"data"`
		Metadata struct {
			SuggestedAlias string `json:"suggestedAlias,omitempty"`
			Category       string `json:"category,omitempty"`
		} `json:"metadata"`
	}
}

// ListLinksRequest is the paginated owner-listing request.
type ListLinksRequest struct {
	UserID string `doc:"Owner account id" query:"userId"`
	Page   int    `doc:"Page number (1-based)" query:"page"`
	Limit  int    `doc:"Page size" query:"limit"`
	Sort   string `doc:"Sort field: createdAt, updatedAt, clicks, lastClicked, title" query:"sort"`
	Order  string `doc:"Sort order: asc or desc" query:"order"`
	Filter string `doc:"Case-insensitive substring match over URL, title, description, and code" query:"filter"`
}

// ListLinksResponse is a page of the owner's links.
type ListLinksResponse struct {
	Body struct {
		Success    bool                 `json:"success"`
		Data       []LinkView           `json:"data"`
		Pagination shortlink.Pagination `json:"pagination"`
	}
}

// UpdateLinkRequest updates the owner-editable fields. Absent fields are
// left untouched.
type UpdateLinkRequest struct {
	ID   string `doc:"Link identifier" path:"id"`
	Body struct {
		UserID       string     `doc:"Owner account id" json:"userId"`
		Title        *string    `json:"title,omitempty"`
		Description  *string    `json:"description,omitempty"`
		Keywords     *[]string  `json:"keywords,omitempty"`
		PreviewImage *string    `json:"previewImage,omitempty"`
		CustomAlias  *string    `json:"customAlias,omitempty"`
		ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
		ClearExpiry  bool       `doc:"Remove the expiry entirely" json:"clearExpiry,omitempty"`
		IsActive     *bool      `json:"isActive,omitempty"`
	}
}

// UpdateLinkResponse returns the updated link.
type UpdateLinkResponse struct {
	Body struct {
		Success bool     `json:"success"`
		Data    LinkView `json:"data"`
	}
}

// DeleteLinkRequest hard-deletes an owned link.
type DeleteLinkRequest struct {
	ID     string `doc:"Link identifier" path:"id"`
	UserID string `doc:"Owner account id" query:"userId"`
}

// DeleteLinkResponse confirms a deletion.
type DeleteLinkResponse struct {
	Body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
}

// LinkStatsRequest fetches aggregate click statistics for an owned link.
type LinkStatsRequest struct {
	ID     string `doc:"Link identifier" path:"id"`
	UserID string `doc:"Owner account id" query:"userId"`
}

// LinkStatsResponse carries aggregate click statistics.
type LinkStatsResponse struct {
	Body struct {
		Success bool `json:"success"`
		Data    struct {
			TotalClicks  int64            `doc:"Cumulative clicks, independent of history eviction" json:"totalClicks"`
			UniqueClicks int              `doc:"Distinct IPs in retained history" json:"uniqueClicks"`
			LastClicked  *time.Time       `json:"lastClicked,omitempty"`
			ClicksByDay  map[string]int64 `doc:"Clicks per day over the last 7 days" json:"clicksByDay"`
			TotalHistory int              `doc:"Retained history length (capped)" json:"totalHistory"`
		} `json:"data"`
	}
}

// UserStatsRequest fetches the owner's dashboard aggregates.
type UserStatsRequest struct {
	UserID string `doc:"Owner account id" query:"userId"`
}

// UserStatsResponse carries dashboard aggregates across all the owner's links.
type UserStatsResponse struct {
	Body struct {
		Success bool `json:"success"`
		Data    struct {
			TotalLinks  int64            `json:"totalLinks"`
			ActiveLinks int64            `json:"activeLinks"`
			TotalClicks int64            `doc:"Cumulative clicks across all links" json:"totalClicks"`
			RecentLinks int64            `doc:"Links created in the last 7 days" json:"recentLinks"`
			TopLinks    []LinkView       `doc:"The owner's five most-clicked links" json:"topLinks"`
			ClicksByDay map[string]int64 `doc:"Clicks per day over the last 30 days" json:"clicksByDay"`
		} `json:"data"`
	}
}

// TopLinksRequest fetches the most-clicked active links.
type TopLinksRequest struct {
	Limit int `doc:"Maximum number of links" query:"limit"`
}

// TopLinksResponse lists the most-clicked active links.
type TopLinksResponse struct {
	Body struct {
		Success bool       `json:"success"`
		Data    []LinkView `json:"data"`
	}
}

// RedirectRequest is the hot-path redirect request.
type RedirectRequest struct {
	ShortCode string `doc:"The short code" example:"abc123" path:"shortCode"`
}

// RedirectResponse redirects the visitor to the original URL.
type RedirectResponse struct {
	Status  int
	Headers struct {
		Location string `doc:"The original URL" header:"Location"`
	}
}
