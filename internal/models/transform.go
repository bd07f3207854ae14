package models

// TransformSpec describes the pipeline applied to an image on a transform
// request. Every stage is optional; stages run in a fixed order regardless of
// field order in the request body. Specs are request-scoped and never stored.
type TransformSpec struct {
	Resize  *ResizeSpec `json:"resize,omitempty"`
	Crop    *CropSpec   `json:"crop,omitempty"`
	Rotate  *float64    `json:"rotate,omitempty"`
	Filters *FilterSpec `json:"filters,omitempty"`
	Format  string      `json:"format,omitempty"`
}

type ResizeSpec struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CropSpec selects a rectangle with origin (X, Y) in source pixel coordinates.
type CropSpec struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

type FilterSpec struct {
	Grayscale bool     `json:"grayscale"`
	Blur      *float64 `json:"blur,omitempty"`
}
