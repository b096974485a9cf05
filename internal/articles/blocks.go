package articles

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

// BlockType enumerates the supported article content block kinds.
type BlockType string

const (
	BlockTypeHeader         BlockType = "header"
	BlockTypeParagraph      BlockType = "paragraph"
	BlockTypeQuote          BlockType = "quote"
	BlockTypeList           BlockType = "list"
	BlockTypeHorizontalRule BlockType = "horizontal_rule"
	BlockTypeImage          BlockType = "image"
)

// ListType enumerates list block orderings.
type ListType string

const (
	ListTypeOrdered   ListType = "ordered"
	ListTypeUnordered ListType = "unordered"
)

// ImageMargin enumerates image block margins.
type ImageMargin string

const (
	ImageMarginNarrow ImageMargin = "narrow"
	ImageMarginMiddle ImageMargin = "middle"
	ImageMarginWide   ImageMargin = "wide"
)

// ErrInvalidBlock indicates a content block that fails structural validation.
var ErrInvalidBlock = errors.New("articles: invalid content block")

// Block is one typed unit of an article body. Only the fields relevant to
// the block's type are populated; Validate enforces the per-type shape.
type Block struct {
	Type         BlockType
	HeadingLevel int         // header
	Content      string      // header, paragraph, quote
	Items        []string    // list
	ListType     ListType    // list
	URLs         []string    // image; a single url is accepted on input
	Margin       ImageMargin // image
}

type blockWire struct {
	Type         BlockType       `json:"type"`
	HeadingLevel int             `json:"heading_level,omitempty"`
	Content      json.RawMessage `json:"content,omitempty"`
	ListType     ListType        `json:"list_type,omitempty"`
	URL          json.RawMessage `json:"url,omitempty"`
	Margin       ImageMargin     `json:"margin,omitempty"`
}

// UnmarshalJSON decodes the discriminated wire shape. The content field is a
// scalar for header/paragraph/quote and an array for list; the image url
// field accepts either a single URL or a list of URLs.
func (b *Block) UnmarshalJSON(data []byte) error {
	var wire blockWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	block := Block{
		Type:         wire.Type,
		HeadingLevel: wire.HeadingLevel,
		ListType:     wire.ListType,
		Margin:       wire.Margin,
	}

	switch wire.Type {
	case BlockTypeList:
		if len(wire.Content) > 0 {
			if err := json.Unmarshal(wire.Content, &block.Items); err != nil {
				return fmt.Errorf("%w: list content must be an array of strings", ErrInvalidBlock)
			}
		}
	default:
		if len(wire.Content) > 0 {
			if err := json.Unmarshal(wire.Content, &block.Content); err != nil {
				return fmt.Errorf("%w: content must be a string", ErrInvalidBlock)
			}
		}
	}

	if len(wire.URL) > 0 {
		var single string
		if err := json.Unmarshal(wire.URL, &single); err == nil {
			block.URLs = []string{single}
		} else if err := json.Unmarshal(wire.URL, &block.URLs); err != nil {
			return fmt.Errorf("%w: url must be a string or an array of strings", ErrInvalidBlock)
		}
	}

	*b = block
	return nil
}

// MarshalJSON emits the discriminated wire shape. Image URLs are always
// emitted as an array.
func (b Block) MarshalJSON() ([]byte, error) {
	wire := blockWire{
		Type:         b.Type,
		HeadingLevel: b.HeadingLevel,
		ListType:     b.ListType,
		Margin:       b.Margin,
	}

	switch b.Type {
	case BlockTypeList:
		items := b.Items
		if items == nil {
			items = []string{}
		}
		encoded, err := json.Marshal(items)
		if err != nil {
			return nil, err
		}
		wire.Content = encoded
	case BlockTypeHorizontalRule, BlockTypeImage:
		// no content field
	default:
		encoded, err := json.Marshal(b.Content)
		if err != nil {
			return nil, err
		}
		wire.Content = encoded
	}

	if b.Type == BlockTypeImage {
		encoded, err := json.Marshal(b.URLs)
		if err != nil {
			return nil, err
		}
		wire.URL = encoded
	}

	return json.Marshal(wire)
}

// Validate enforces the per-type structural constraints.
func (b Block) Validate() error {
	switch b.Type {
	case BlockTypeHeader:
		if b.HeadingLevel < 1 || b.HeadingLevel > 6 {
			return fmt.Errorf("%w: heading level must be between 1 and 6", ErrInvalidBlock)
		}
		if b.Content == "" {
			return fmt.Errorf("%w: header content must not be empty", ErrInvalidBlock)
		}
	case BlockTypeParagraph, BlockTypeQuote:
		if b.Content == "" {
			return fmt.Errorf("%w: %s content must not be empty", ErrInvalidBlock, b.Type)
		}
	case BlockTypeList:
		if b.ListType != ListTypeOrdered && b.ListType != ListTypeUnordered {
			return fmt.Errorf("%w: list type must be ordered or unordered", ErrInvalidBlock)
		}
		if len(b.Items) == 0 {
			return fmt.Errorf("%w: list must contain at least one item", ErrInvalidBlock)
		}
	case BlockTypeHorizontalRule:
		// no structure to validate
	case BlockTypeImage:
		if len(b.URLs) == 0 {
			return fmt.Errorf("%w: image must reference at least one url", ErrInvalidBlock)
		}
		for _, raw := range b.URLs {
			parsed, err := url.Parse(raw)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return fmt.Errorf("%w: image url %q is not a valid http(s) url", ErrInvalidBlock, raw)
			}
		}
		switch b.Margin {
		case ImageMarginNarrow, ImageMarginMiddle, ImageMarginWide:
		default:
			return fmt.Errorf("%w: image margin must be narrow, middle or wide", ErrInvalidBlock)
		}
	default:
		return fmt.Errorf("%w: unknown block type %q", ErrInvalidBlock, b.Type)
	}
	return nil
}

// ValidateBlocks validates every block of an article body in order.
func ValidateBlocks(blocks []Block) error {
	for i, block := range blocks {
		if err := block.Validate(); err != nil {
			return fmt.Errorf("block %d: %w", i, err)
		}
	}
	return nil
}

// EncodeBody serializes an article body for storage.
func EncodeBody(blocks []Block) (string, error) {
	if blocks == nil {
		blocks = []Block{}
	}
	encoded, err := json.Marshal(blocks)
	if err != nil {
		return "", fmt.Errorf("articles: encoding body: %w", err)
	}
	return string(encoded), nil
}

// DecodeBody deserializes a stored article body.
func DecodeBody(bodyJSON string) ([]Block, error) {
	if bodyJSON == "" {
		return []Block{}, nil
	}
	var blocks []Block
	if err := json.Unmarshal([]byte(bodyJSON), &blocks); err != nil {
		return nil, fmt.Errorf("articles: decoding body: %w", err)
	}
	return blocks, nil
}
