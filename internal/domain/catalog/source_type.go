package catalog

// ---------------------------------------------------------------------------
// SourceType represents the platform identity that produced a record
// ---------------------------------------------------------------------------

// SourceType represents the drop-shipping platform whose feed schema produced a record
type SourceType string

const (
	// SourceTypeEasyDrop represents the EasyDrop YML feed
	SourceTypeEasyDrop SourceType = "EASYDROP"
	// SourceTypeMyDrop represents the MyDrop XML feed
	SourceTypeMyDrop SourceType = "MYDROP"
)

// AllSourceTypes returns all supported source types
func AllSourceTypes() []SourceType {
	return []SourceType{
		SourceTypeEasyDrop,
		SourceTypeMyDrop,
	}
}

// IsValid returns true if the source type is a known platform
func (s SourceType) IsValid() bool {
	switch s {
	case SourceTypeEasyDrop, SourceTypeMyDrop:
		return true
	default:
		return false
	}
}

// String returns the string representation of SourceType
func (s SourceType) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the platform
func (s SourceType) DisplayName() string {
	switch s {
	case SourceTypeEasyDrop:
		return "EasyDrop"
	case SourceTypeMyDrop:
		return "MyDrop"
	default:
		return string(s)
	}
}
