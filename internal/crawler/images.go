package crawler

import (
	"context"
	"net/url"
	"regexp"

	exif "github.com/dsoprea/go-exif/v3"

	"github.com/nao1215/telecheck/internal/model"
)

// exifImagePattern matches URLs of formats that carry EXIF metadata.
var exifImagePattern = regexp.MustCompile(`(?i)\.(jpe?g|tiff?|heic)(?:\?[^"'\s]*)?$`)

// exifTags lists the tags kept on an image record. Everything else
// (exposure, dimensions, ...) says nothing about the people in the photo.
var exifTags = map[string]bool{
	"GPSLatitude":        true,
	"GPSLongitude":       true,
	"GPSLatitudeRef":     true,
	"GPSLongitudeRef":    true,
	"Make":               true,
	"Model":              true,
	"SerialNumber":       true,
	"CameraSerialNumber": true,
	"BodySerialNumber":   true,
	"LensSerialNumber":   true,
	"Software":           true,
	"Artist":             true,
	"Author":             true,
	"XPAuthor":           true,
	"Copyright":          true,
	"DateTimeOriginal":   true,
	"HostComputer":       true,
}

// inspectPageImages downloads same-site images and attaches their EXIF
// metadata. Each distinct image URL is fetched once, at most maxImages in
// total; every record referencing it receives the metadata.
func (s *Spider) inspectPageImages(ctx context.Context, seed *url.URL, pages []*model.PageRecord) {
	cache := make(map[string]map[string]string)
	fetched := 0

	for _, page := range pages {
		for i := range page.Images {
			img := &page.Images[i]
			if ctx.Err() != nil {
				return
			}
			if !exifImagePattern.MatchString(img.Src) {
				continue
			}
			u, err := url.Parse(img.Src)
			if err != nil || !sameSite(u.Hostname(), seed.Hostname()) {
				continue
			}

			meta, ok := cache[img.Src]
			if !ok {
				if fetched >= s.maxImages {
					continue
				}
				fetched++
				meta = s.fetchImageMetadata(ctx, img.Src)
				cache[img.Src] = meta
			}
			if len(meta) > 0 {
				img.Metadata = meta
			}
		}
	}
}

func (s *Spider) fetchImageMetadata(ctx context.Context, imageURL string) map[string]string {
	resp, err := s.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		s.logger.Debug("image fetch failed", "url", imageURL, "error", err)
		return nil
	}
	if int64(len(resp.Body)) > s.maxImageSize {
		return nil
	}
	return ExtractImageMetadata(resp.Body)
}

// ExtractImageMetadata returns the identifying EXIF tags found in an image,
// or nil when the image has none.
func ExtractImageMetadata(data []byte) map[string]string {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	meta := make(map[string]string)
	for _, entry := range entries {
		if exifTags[entry.TagName] && entry.Formatted != "" {
			meta[entry.TagName] = entry.Formatted
		}
	}
	if len(meta) == 0 {
		return nil
	}
	return meta
}
