// Copyright (C) 2025 Aegis Labs
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/aegislabs/aegis/services/orchestrator/datatypes"
	"github.com/aegislabs/aegis/services/orchestrator/services"
)

// extensionKinds classifies uploads whose Content-Type header is missing
// or generic.
var extensionKinds = map[string]datatypes.ItemKind{
	".jpg": datatypes.ItemKindImage, ".jpeg": datatypes.ItemKindImage,
	".png": datatypes.ItemKindImage, ".gif": datatypes.ItemKindImage,
	".webp": datatypes.ItemKindImage, ".bmp": datatypes.ItemKindImage,
	".mp4": datatypes.ItemKindVideo, ".mov": datatypes.ItemKindVideo,
	".mkv": datatypes.ItemKindVideo, ".webm": datatypes.ItemKindVideo,
	".avi": datatypes.ItemKindVideo,
	".mp3": datatypes.ItemKindAudio, ".wav": datatypes.ItemKindAudio,
	".m4a": datatypes.ItemKindAudio, ".ogg": datatypes.ItemKindAudio,
	".flac": datatypes.ItemKindAudio,
}

// saveUpload writes one multipart file to a temp directory and builds its
// verification item. The temp directory is registered on cleanup; the
// item's FilePath stays valid until the list is flushed.
func saveUpload(c *gin.Context, header *multipart.FileHeader, cleanup *services.CleanupList) (datatypes.VerificationItem, error) {
	dir, err := os.MkdirTemp("", "aegis-upload-*")
	if err != nil {
		return datatypes.VerificationItem{}, fmt.Errorf("failed to create upload dir: %w", err)
	}
	cleanup.Add(dir)

	// Base strips any path components a hostile client embeds in the name.
	dst := filepath.Join(dir, filepath.Base(header.Filename))
	if err := c.SaveUploadedFile(header, dst); err != nil {
		return datatypes.VerificationItem{}, fmt.Errorf("failed to save %s: %w", header.Filename, err)
	}

	contentType := header.Header.Get("Content-Type")
	return datatypes.VerificationItem{
		Kind:        classifyUpload(contentType, header.Filename),
		Source:      datatypes.SourceUploadedFile,
		FilePath:    dst,
		FileName:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	}, nil
}

// classifyUpload maps an upload to its item kind, preferring the declared
// content type and falling back to the filename extension. Unclassifiable
// uploads return the zero kind, which the router treats as unroutable.
func classifyUpload(contentType, filename string) datatypes.ItemKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "image/"):
		return datatypes.ItemKindImage
	case strings.HasPrefix(ct, "video/"):
		return datatypes.ItemKindVideo
	case strings.HasPrefix(ct, "audio/"):
		return datatypes.ItemKindAudio
	}
	return extensionKinds[strings.ToLower(filepath.Ext(filename))]
}
