package models

import "encoding/json"

// Image is one rendition of a provider photo.
type Image struct {
	Source string `json:"source"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Photo is a provider item as returned by the Graph API. Place is kept
// verbatim so photos.json round-trips whatever the provider sent.
type Photo struct {
	ID          string          `json:"id"`
	CreatedTime string          `json:"created_time,omitempty"`
	Name        string          `json:"name,omitempty"`
	Place       json.RawMessage `json:"place,omitempty"`
	Images      []Image         `json:"images,omitempty"`
}

// Post is the normalized view written to posts.json.
type Post struct {
	ID          string   `json:"id"`
	CreatedTime string   `json:"created_time,omitempty"`
	Message     string   `json:"message"`
	FullPicture *string  `json:"full_picture"`
	Images      []string `json:"images"`
	IsPhoto     bool     `json:"is_photo"`
}

// PostFromPhoto derives a Post. The first image is taken as the
// representative picture; the provider lists the largest rendition first.
func PostFromPhoto(p Photo) Post {
	post := Post{
		ID:          p.ID,
		CreatedTime: p.CreatedTime,
		Message:     p.Name,
		Images:      []string{},
		IsPhoto:     true,
	}
	if len(p.Images) > 0 {
		src := p.Images[0].Source
		post.FullPicture = &src
		post.Images = []string{src}
	}
	return post
}
