package model

import (
	"errors"
	"time"
)

// CreateVideoRequest represents the request to create a video job
type CreateVideoRequest struct {
	Prompt       string   `json:"prompt" validate:"max=500"`
	StyleID      string   `json:"styleId" validate:"omitempty,max=32"`
	SourceImages []string `json:"sourceImages" validate:"required,min=1,max=3,dive,required,max=512"`
	LogoRef      string   `json:"logoRef" validate:"omitempty,max=512"`
}

// OverlayFields is the wire form of a partial overlay change
type OverlayFields struct {
	Captions     []Caption     `json:"captions" validate:"omitempty,max=20,dive"`
	LogoRef      *string       `json:"logoRef" validate:"omitempty,max=512"`
	LogoPosition *LogoPosition `json:"logoPosition" validate:"omitempty,oneof=top-left top-right bottom-left bottom-right"`
	MusicTrack   *string       `json:"musicTrack" validate:"omitempty,max=32"`
	PrimaryColor *string       `json:"primaryColor" validate:"omitempty,hexcolor"`
}

// OverlayUpdateRequest selects exactly one of replace or merge. An empty
// request is a merge that changes nothing.
type OverlayUpdateRequest struct {
	Replace *OverlaySpec   `json:"replace"`
	Merge   *OverlayFields `json:"merge" validate:"omitempty"`
}

var ErrAmbiguousOverlayUpdate = errors.New("only one of replace or merge may be set")

// ToUpdate converts the request into an OverlayUpdate.
func (r *OverlayUpdateRequest) ToUpdate() (OverlayUpdate, error) {
	if r == nil {
		return nil, nil
	}
	if r.Replace != nil && r.Merge != nil {
		return nil, ErrAmbiguousOverlayUpdate
	}
	if r.Replace != nil {
		return ReplaceAll{Spec: *r.Replace}, nil
	}
	if r.Merge != nil {
		return MergeFields{
			Captions:     r.Merge.Captions,
			LogoRef:      r.Merge.LogoRef,
			LogoPosition: r.Merge.LogoPosition,
			MusicTrack:   r.Merge.MusicTrack,
			PrimaryColor: r.Merge.PrimaryColor,
		}, nil
	}
	return nil, nil
}

// AttachRenderRequest hands a rendered video back to the job
type AttachRenderRequest struct {
	VideoURL string `json:"videoUrl" validate:"required,url"`
}

// VideoJobView is a job plus short-lived URLs for its media
type VideoJobView struct {
	*VideoJob
	SourceImageURLs []string `json:"sourceImageUrls"`
	SegmentURLs     []string `json:"segmentUrls,omitempty"`
	FinalVideoURL   string   `json:"finalVideoUrl,omitempty"`
}

// VideoListResponse wraps a page of jobs
type VideoListResponse struct {
	Videos []*VideoJobView `json:"videos"`
}

// GenerateStartResponse is returned when generation is queued
type GenerateStartResponse struct {
	JobID    string    `json:"jobId"`
	Status   JobStatus `json:"status"`
	QueuedAt time.Time `json:"queuedAt"`
}

// CaptionSuggestRequest asks for one caption per scene
type CaptionSuggestRequest struct {
	Tone string `json:"tone" validate:"omitempty,max=50"`
}

// CaptionSuggestResponse carries suggested captions
type CaptionSuggestResponse struct {
	Captions []Caption `json:"captions"`
	Source   string    `json:"source"`
}
