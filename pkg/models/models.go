// Package models defines the data types shared across the classification
// pipeline: PII types, per-column detection results, and table aggregates.
package models

// PIIType identifies a category of personally identifiable information.
type PIIType string

const (
	PIITypeEmail       PIIType = "EMAIL"
	PIITypePhone       PIIType = "PHONE"
	PIITypeName        PIIType = "NAME"
	PIITypeSSN         PIIType = "SSN"
	PIITypeCreditCard  PIIType = "CREDIT_CARD"
	PIITypeAddress     PIIType = "ADDRESS"
	PIITypeDateOfBirth PIIType = "DATE_OF_BIRTH"
	PIITypeIPAddress   PIIType = "IP_ADDRESS"
	PIITypePassport    PIIType = "PASSPORT"
	PIITypeIBAN        PIIType = "IBAN"
)

// PIITypeDetection is a single detection emitted by a strategy: the PII type
// found, the confidence in [0,1], the name of the detecting method, and
// free-form metadata (original confidence before enhancement, enhancement
// factor, sample evidence).
type PIITypeDetection struct {
	Type       PIIType           `json:"type"`
	Confidence float64           `json:"confidence"`
	Method     string            `json:"method"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SetMetadata records a key on the detection, allocating the map lazily.
func (d *PIITypeDetection) SetMetadata(key, value string) {
	if d.Metadata == nil {
		d.Metadata = make(map[string]string)
	}
	d.Metadata[key] = value
}

// ColumnPIIInfo holds the outcome of classifying one column. It is mutated
// only within the pipeline run that produces it and is immutable once cached.
type ColumnPIIInfo struct {
	ConnectionID string             `json:"connection_id"`
	DBType       string             `json:"db_type"`
	TableName    string             `json:"table_name"`
	ColumnName   string             `json:"column_name"`
	Detections   []PIITypeDetection `json:"detections,omitempty"`
	PIIDetected  bool               `json:"pii_detected"`
	Metadata     map[string]string  `json:"metadata,omitempty"`
}

// NewColumnPIIInfo creates an empty result for the given column.
func NewColumnPIIInfo(connectionID, dbType, tableName, columnName string) ColumnPIIInfo {
	return ColumnPIIInfo{
		ConnectionID: connectionID,
		DBType:       dbType,
		TableName:    tableName,
		ColumnName:   columnName,
		Metadata:     make(map[string]string),
	}
}

// AddDetection appends a detection and updates the derived PIIDetected flag.
func (c *ColumnPIIInfo) AddDetection(d PIITypeDetection) {
	c.Detections = append(c.Detections, d)
	c.PIIDetected = true
}

// SetMetadata records a key on the column result, allocating the map lazily.
func (c *ColumnPIIInfo) SetMetadata(key, value string) {
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	c.Metadata[key] = value
}

// Clone returns a deep copy. Cached results hand out clones so callers can
// never mutate a stored entry.
func (c *ColumnPIIInfo) Clone() ColumnPIIInfo {
	out := *c
	if c.Detections != nil {
		out.Detections = make([]PIITypeDetection, len(c.Detections))
		for i, d := range c.Detections {
			out.Detections[i] = d
			if d.Metadata != nil {
				out.Detections[i].Metadata = make(map[string]string, len(d.Metadata))
				for k, v := range d.Metadata {
					out.Detections[i].Metadata[k] = v
				}
			}
		}
	}
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// BestDetection returns the highest-confidence detection, or nil if the
// column has none.
func (c *ColumnPIIInfo) BestDetection() *PIITypeDetection {
	var best *PIITypeDetection
	for i := range c.Detections {
		if best == nil || c.Detections[i].Confidence > best.Confidence {
			best = &c.Detections[i]
		}
	}
	return best
}

// TablePIIInfo aggregates the column results for one table.
// HasPII is derived: true iff any column reported PII.
type TablePIIInfo struct {
	TableName string          `json:"table_name"`
	Columns   []ColumnPIIInfo `json:"columns"`
	HasPII    bool            `json:"has_pii"`
}

// AddColumn appends a column result and updates the derived HasPII flag.
func (t *TablePIIInfo) AddColumn(c ColumnPIIInfo) {
	t.Columns = append(t.Columns, c)
	if c.PIIDetected {
		t.HasPII = true
	}
}

// ColumnDescriptor is the schema metadata for one column, as provided by the
// external metadata/sampling collaborator.
type ColumnDescriptor struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Nullable bool   `json:"nullable"`
}
