package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"net/http"
	"os"
	"strings"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
	"github.com/yungbote/policylens-backend/internal/modules/digest/merge"
	"github.com/yungbote/policylens-backend/internal/platform/apierr"
	"github.com/yungbote/policylens-backend/internal/platform/gcp"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/utils"
)

const (
	cardWidth  = 1200
	cardHeight = 630
)

// ShareCardService renders a PNG share card for one digest entry on demand
// and uploads it to the card bucket. The object key is derived from the
// entry's identity and generated_at, so re-rendering an unchanged entry
// overwrites the same object with the same bytes.
type ShareCardService interface {
	CardURL(ctx context.Context, kind string, entryKey string) (string, error)
}

type shareCardService struct {
	log       *logger.Logger
	query     DigestQueryService
	bucket    gcp.BucketService
	titleFace font.Face
	bodyFace  font.Face
	smallFace font.Face
}

func NewShareCardService(baseLog *logger.Logger, query DigestQueryService, bucket gcp.BucketService) (ShareCardService, error) {
	serviceLog := baseLog.With("service", "ShareCardService")
	fontPath := utils.GetEnv("CARD_FONT_PATH", "assets/fonts/Inter-Bold.ttf", serviceLog)

	titleFace, err := loadCardFont(fontPath, 64)
	if err != nil {
		return nil, fmt.Errorf("could not load card font: %w", err)
	}
	bodyFace, err := loadCardFont(fontPath, 34)
	if err != nil {
		return nil, fmt.Errorf("could not load card font: %w", err)
	}
	smallFace, err := loadCardFont(fontPath, 26)
	if err != nil {
		return nil, fmt.Errorf("could not load card font: %w", err)
	}

	return &shareCardService{
		log:       serviceLog,
		query:     query,
		bucket:    bucket,
		titleFace: titleFace,
		bodyFace:  bodyFace,
		smallFace: smallFace,
	}, nil
}

func loadCardFont(fontPath string, size float64) (font.Face, error) {
	fontBytes, err := os.ReadFile(fontPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read font file: %w", err)
	}
	parsedFont, err := truetype.Parse(fontBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse TTF: %w", err)
	}
	return truetype.NewFace(parsedFont, &truetype.Options{Size: size}), nil
}

// cardEntry is the union of the display fields across all entry shapes.
type cardEntry struct {
	OfficialName string             `json:"official_name"`
	StartYear    int                `json:"start_year"`
	EndYear      int                `json:"end_year"`
	Open         bool               `json:"open"`
	Period       string             `json:"period"`
	Name         string             `json:"name"`
	Year         int                `json:"year"`
	OrderCount   int                `json:"order_count"`
	TopThemes    []digests.TagStat  `json:"top_themes"`
	Narrative    *digests.Narrative `json:"narrative"`
	GeneratedAt  string             `json:"generated_at"`
}

func (s *shareCardService) CardURL(ctx context.Context, kind string, entryKey string) (string, error) {
	mk, err := mergeKindFor(kind)
	if err != nil {
		return "", err
	}

	doc, err := s.query.Get(ctx, kind)
	if err != nil {
		return "", err
	}
	if doc == nil {
		return "", apierr.New(http.StatusNotFound, "digest_not_generated", fmt.Errorf("no %s collection has been generated yet", kind))
	}
	coll := merge.Decode(doc, s.log)

	var raw json.RawMessage
	for _, e := range coll.Entries {
		key, kerr := mk.KeyOf(e)
		if kerr == nil && key == entryKey {
			raw = e
			break
		}
	}
	if raw == nil {
		return "", apierr.New(http.StatusNotFound, "entry_not_found", fmt.Errorf("no entry %q in %s", entryKey, kind))
	}

	var entry cardEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return "", fmt.Errorf("malformed digest entry: %w", err)
	}

	buf, err := s.render(kind, entry)
	if err != nil {
		return "", err
	}

	objectKey := cardObjectKey(kind, entryKey, entry.GeneratedAt)
	if err := s.bucket.UploadFile(ctx, gcp.BucketCategoryCard, objectKey, bytes.NewReader(buf.Bytes())); err != nil {
		return "", fmt.Errorf("failed to upload share card: %w", err)
	}
	return s.bucket.GetPublicURL(gcp.BucketCategoryCard, objectKey), nil
}

func cardObjectKey(kind, entryKey, version string) string {
	sanitized := strings.NewReplacer(":", "-", "/", "-", " ", "-").Replace(entryKey)
	if version == "" {
		version = "0"
	} else {
		version = strings.NewReplacer(":", "", "-", "", "+", "").Replace(version)
	}
	return fmt.Sprintf("cards/%s/%s/%s.png", kind, sanitized, version)
}

func (s *shareCardService) render(kind string, entry cardEntry) (bytes.Buffer, error) {
	dc := gg.NewContext(cardWidth, cardHeight)

	// Background
	dc.SetColor(color.NRGBA{R: 0x10, G: 0x17, B: 0x2A, A: 0xFF})
	dc.DrawRectangle(0, 0, cardWidth, cardHeight)
	dc.Fill()

	// Accent bar
	dc.SetColor(color.NRGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF})
	dc.DrawRectangle(0, 0, 14, cardHeight)
	dc.Fill()

	// Kind label
	dc.SetFontFace(s.smallFace)
	dc.SetColor(color.NRGBA{R: 0x93, G: 0xA5, B: 0xC4, A: 0xFF})
	dc.DrawString(cardKindLabel(kind), 64, 72)

	// Headline
	headline := cardHeadline(kind, entry)
	dc.SetFontFace(s.titleFace)
	dc.SetColor(color.White)
	dc.DrawStringWrapped(headline, 64, 120, 0, 0, cardWidth-128, 1.2, gg.AlignLeft)

	// Subtitle
	dc.SetFontFace(s.bodyFace)
	dc.SetColor(color.NRGBA{R: 0xC8, G: 0xD2, B: 0xE6, A: 0xFF})
	dc.DrawString(cardSubtitle(kind, entry), 64, 400)

	// Theme chips
	dc.SetFontFace(s.smallFace)
	x := 64.0
	for i, t := range entry.TopThemes {
		if i >= 3 {
			break
		}
		label := fmt.Sprintf("%s (%d)", t.Name, t.Count)
		tw, _ := dc.MeasureString(label)
		dc.SetColor(color.NRGBA{R: 0x1E, G: 0x2A, B: 0x45, A: 0xFF})
		dc.DrawRoundedRectangle(x, 440, tw+40, 52, 26)
		dc.Fill()
		dc.SetColor(color.NRGBA{R: 0xC8, G: 0xD2, B: 0xE6, A: 0xFF})
		dc.DrawString(label, x+20, 474)
		x += tw + 56
	}

	// Footer
	dc.SetColor(color.NRGBA{R: 0x93, G: 0xA5, B: 0xC4, A: 0xFF})
	dc.DrawString("policylens", 64, cardHeight-48)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return buf, fmt.Errorf("failed to encode PNG: %w", err)
	}
	return buf, nil
}

func cardKindLabel(kind string) string {
	switch kind {
	case digests.KindTerms:
		return "TERM DIGEST"
	case digests.KindPeriods:
		return "PERIOD DIGEST"
	case digests.KindThemes:
		return "THEME DIGEST"
	default:
		return "DIGEST"
	}
}

func cardHeadline(kind string, entry cardEntry) string {
	if entry.Narrative != nil && strings.TrimSpace(entry.Narrative.Headline) != "" {
		return entry.Narrative.Headline
	}
	return cardSubtitle(kind, entry)
}

func cardSubtitle(kind string, entry cardEntry) string {
	switch kind {
	case digests.KindTerms:
		end := fmt.Sprintf("%d", entry.EndYear)
		if entry.Open {
			end = "present"
		}
		return fmt.Sprintf("%s, %d to %s. %d orders signed.", entry.OfficialName, entry.StartYear, end, entry.OrderCount)
	case digests.KindPeriods:
		return fmt.Sprintf("%s. %d orders signed.", entry.Period, entry.OrderCount)
	case digests.KindThemes:
		return fmt.Sprintf("%s, %d. %d orders tagged.", entry.Name, entry.Year, entry.OrderCount)
	default:
		return fmt.Sprintf("%d orders.", entry.OrderCount)
	}
}
