// Chronicle - Chat Activity Capture and Event-Sourced Projections
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/chronicle

package search

import (
	"path"
	"sort"
	"strings"

	"github.com/tomtom215/chronicle/internal/events"
	"github.com/tomtom215/chronicle/internal/markdown"
)

// Feature tags stored in Document.Has.
const (
	TagLink  = "link"
	TagEmbed = "embed"
	TagImage = "image"
	TagVideo = "video"
	TagSound = "sound"
	TagFile  = "file"
)

var extensionTags = map[string]string{
	".png": TagImage, ".jpg": TagImage, ".jpeg": TagImage, ".gif": TagImage,
	".webp": TagImage, ".bmp": TagImage, ".svg": TagImage, ".tif": TagImage, ".tiff": TagImage,
	".mp4": TagVideo, ".webm": TagVideo, ".mov": TagVideo, ".mkv": TagVideo,
	".avi": TagVideo, ".m4v": TagVideo, ".wmv": TagVideo,
	".mp3": TagSound, ".wav": TagSound, ".ogg": TagSound, ".flac": TagSound,
	".m4a": TagSound, ".aac": TagSound, ".opus": TagSound, ".wma": TagSound,
}

// ClassifyAttachment maps a file name to image, video, sound or file.
func ClassifyAttachment(name string) string {
	if tag, ok := extensionTags[strings.ToLower(path.Ext(name))]; ok {
		return tag
	}
	return TagFile
}

// AttachmentTags returns the tags contributed by attachments.
func AttachmentTags(attachments []events.Attachment) []string {
	set := make(map[string]struct{}, len(attachments))
	for _, a := range attachments {
		set[ClassifyAttachment(a.Name)] = struct{}{}
	}
	return sortedTags(set)
}

// EmbedTags returns the tags contributed by embeds. Every embed adds embed;
// media embeds add image or video.
func EmbedTags(embeds []events.Embed) []string {
	set := make(map[string]struct{}, 3)
	for _, e := range embeds {
		set[TagEmbed] = struct{}{}
		switch {
		case e.Type == "video" || e.Type == "gifv" || e.VideoURL != "":
			set[TagVideo] = struct{}{}
		case e.Type == "image" || e.ImageURL != "":
			set[TagImage] = struct{}{}
		}
	}
	return sortedTags(set)
}

// ContentTags returns the tags and mentioned users derived from text.
func ContentTags(content string) (tags, mentions []string) {
	facts := markdown.Extract(content)
	if facts.HasLinks {
		tags = []string{TagLink}
	} else {
		tags = []string{}
	}
	return tags, facts.Mentions()
}

func sortedTags(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
