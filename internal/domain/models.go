package domain

import (
	"fmt"
	"time"
)

// Core Enums and Types

// OrderStatus represents the lifecycle state of a medication order.
type OrderStatus string

const (
	OrderPending      OrderStatus = "pending"
	OrderActive       OrderStatus = "active"
	OrderCompleted    OrderStatus = "completed"
	OrderDiscontinued OrderStatus = "discontinued"
	OrderCancelled    OrderStatus = "cancelled"
)

// Route represents a medication administration route.
type Route string

const (
	RoutePO   Route = "PO"   // oral
	RouteIV   Route = "IV"   // intravenous
	RouteIM   Route = "IM"   // intramuscular
	RouteSC   Route = "SC"   // subcutaneous
	RouteSL   Route = "SL"   // sublingual
	RouteTOP  Route = "TOP"  // topical
	RouteINH  Route = "INH"  // inhaled
	RoutePR   Route = "PR"   // rectal
	RouteIVPB Route = "IVPB" // IV piggyback
	RouteIVP  Route = "IVP"  // IV push
)

// Frequency represents a dosing frequency code.
type Frequency string

const (
	FreqSTAT Frequency = "STAT"
	FreqQD   Frequency = "QD"
	FreqBID  Frequency = "BID"
	FreqTID  Frequency = "TID"
	FreqQID  Frequency = "QID"
	FreqQ4H  Frequency = "Q4H"
	FreqQ6H  Frequency = "Q6H"
	FreqQ8H  Frequency = "Q8H"
	FreqQ12H Frequency = "Q12H"
	FreqQ24H Frequency = "Q24H"
	FreqQHS  Frequency = "QHS"
	FreqPRN  Frequency = "PRN"
	FreqQOD  Frequency = "QOD"
	FreqQW   Frequency = "QW"
)

// RenalCategory is the interpretive band for an estimated creatinine clearance.
type RenalCategory string

const (
	RenalNormal   RenalCategory = "Normal"
	RenalMild     RenalCategory = "Mild impairment"
	RenalModerate RenalCategory = "Moderate impairment"
	RenalSevere   RenalCategory = "Severe impairment"
	RenalEndStage RenalCategory = "End-stage renal disease"
)

// Reference Data Models

// FormularyItem is a single entry in the hospital formulary.
// Items are loaded once at startup and never mutated.
type FormularyItem struct {
	DrugCode                string   `json:"drug_code"`
	DrugName                string   `json:"drug_name"`
	GenericName             string   `json:"generic_name"`
	Strength                string   `json:"strength"`
	Unit                    string   `json:"unit"`
	DosageForm              string   `json:"dosage_form"`
	AvailableRoutes         []string `json:"available_routes"`
	MinDose                 float64  `json:"min_dose"`
	MaxDose                 float64  `json:"max_dose"`
	DefaultFrequency        string   `json:"default_frequency"`
	NHICode                 string   `json:"nhi_code,omitempty"`
	ATCCode                 string   `json:"atc_code,omitempty"`
	RequiresRenalAdjustment bool     `json:"requires_renal_adjustment"`
	HighAlert               bool     `json:"high_alert"`
}

// AllowsRoute reports whether the item can be administered via route.
func (i *FormularyItem) AllowsRoute(route string) bool {
	for _, r := range i.AvailableRoutes {
		if r == route {
			return true
		}
	}
	return false
}

// RenalRange is one CrCl band in a drug's renal dosing rule set.
// Bounds are inclusive; DoseAdjustment of 1.0 means no dose change.
type RenalRange struct {
	CrClMin         float64 `json:"crcl_min"`
	CrClMax         float64 `json:"crcl_max"`
	DoseAdjustment  float64 `json:"dose_adjustment"`
	Frequency       string  `json:"frequency,omitempty"`
	Contraindicated bool    `json:"contraindicated"`
	Recommendation  string  `json:"recommendation"`
}

// RenalRule is the full renal dosing rule set for one drug.
type RenalRule struct {
	NormalDose      string       `json:"normal_dose"`
	NormalFrequency string       `json:"normal_frequency"`
	Ranges          []RenalRange `json:"ranges"`
}

// RenalAdjustment is the lookup result for (drug, CrCl).
// NeedsAdjustment is true when the dose multiplier is not 1.0, the range
// is contraindicated, or the range frequency differs from the drug's
// normal frequency.
type RenalAdjustment struct {
	DrugCode           string  `json:"drug_code"`
	CrClRange          string  `json:"crcl_range"`
	NeedsAdjustment    bool    `json:"needs_adjustment"`
	Recommendation     string  `json:"recommendation"`
	SuggestedDose      float64 `json:"suggested_dose,omitempty"`
	SuggestedFrequency string  `json:"suggested_frequency,omitempty"`
	Contraindicated    bool    `json:"contraindicated"`
}

// Validation Result Models

// SuggestedAdjustments carries renal dosing advice attached to a
// warnings-only validation result.
type SuggestedAdjustments struct {
	RenalAdjustment    bool   `json:"renal_adjustment"`
	SuggestedFrequency string `json:"suggested_frequency,omitempty"`
	Recommendation     string `json:"recommendation"`
}

// ValidationResult is the outcome of validating a proposed order.
// Any error makes the result invalid; warnings alone do not.
// SuggestedAdjustments is only ever attached to a valid result.
type ValidationResult struct {
	Valid                bool                  `json:"valid"`
	Errors               []string              `json:"errors"`
	Warnings             []string              `json:"warnings"`
	SuggestedAdjustments *SuggestedAdjustments `json:"suggested_adjustments,omitempty"`
}

// ValidationSuccess builds a passing result, keeping any advisory warnings.
func ValidationSuccess(warnings []string) ValidationResult {
	if warnings == nil {
		warnings = []string{}
	}
	return ValidationResult{Valid: true, Errors: []string{}, Warnings: warnings}
}

// ValidationFailure builds a failing result from accumulated findings.
func ValidationFailure(errors, warnings []string) ValidationResult {
	if warnings == nil {
		warnings = []string{}
	}
	return ValidationResult{Valid: false, Errors: errors, Warnings: warnings}
}

// ValidationWithAdjustment builds a passing result that carries renal
// dosing advice. Warnings must be non-empty: an adjustment always comes
// with at least the warning that produced it.
func ValidationWithAdjustment(warnings []string, adj *SuggestedAdjustments) ValidationResult {
	return ValidationResult{
		Valid:                true,
		Errors:               []string{},
		Warnings:             warnings,
		SuggestedAdjustments: adj,
	}
}

// Order Execution Models

// OrderResult is the outcome of an order submission.
type OrderResult struct {
	Success bool     `json:"success"`
	OrderID string   `json:"order_id,omitempty"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// OrderSubmitted builds a successful submission result.
func OrderSubmitted(orderID, message string) OrderResult {
	return OrderResult{Success: true, OrderID: orderID, Message: message, Errors: []string{}}
}

// OrderRejected builds a failed submission result.
func OrderRejected(errors []string, message string) OrderResult {
	return OrderResult{Success: false, Message: message, Errors: errors}
}

// StopResult is the outcome of an order discontinuation.
type StopResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Order represents a single medication order as tracked by the HIS.
type Order struct {
	OrderID           string      `json:"order_id"`
	PatientID         string      `json:"patient_id"`
	DrugCode          string      `json:"drug_code"`
	DrugName          string      `json:"drug_name"`
	DoseValue         float64     `json:"dose_value"`
	DoseUnit          string      `json:"dose_unit"`
	Route             string      `json:"route"`
	Frequency         string      `json:"frequency"`
	DurationDays      int         `json:"duration_days"`
	PhysicianID       string      `json:"physician_id"`
	Status            OrderStatus `json:"status"`
	CreatedAt         time.Time   `json:"created_at"`
	DiscontinuedAt    *time.Time  `json:"discontinued_at,omitempty"`
	DiscontinueReason string      `json:"discontinue_reason,omitempty"`
	Notes             string      `json:"notes,omitempty"`
}

// PrescriptionDisplay renders the order in the conventional
// "drug dose route frequency" form.
func (o *Order) PrescriptionDisplay() string {
	return fmt.Sprintf("%s %g %s %s %s", o.DrugName, o.DoseValue, o.DoseUnit, o.Route, o.Frequency)
}

// Discontinue marks the order as stopped with the given reason.
func (o *Order) Discontinue(reason string) {
	now := time.Now()
	o.Status = OrderDiscontinued
	o.DiscontinuedAt = &now
	o.DiscontinueReason = reason
}

// Patient is the minimal patient record returned by the HIS.
type Patient struct {
	PatientID     string    `json:"patient_id"`
	Name          string    `json:"name"`
	Age           int       `json:"age"`
	WeightKg      float64   `json:"weight_kg"`
	Sex           string    `json:"sex"`        // male / female
	Creatinine    float64   `json:"creatinine"` // serum creatinine, mg/dL
	AdmissionDate time.Time `json:"admission_date"`
}

// CrClResult is the outcome of a creatinine clearance estimate.
type CrClResult struct {
	CreatinineClearance float64       `json:"creatinine_clearance"`
	Unit                string        `json:"unit"`
	Category            RenalCategory `json:"category"`
	Formula             string        `json:"formula"`
}

// Interaction Models

// InteractionSeverity ranks drug interaction severity.
type InteractionSeverity string

const (
	SeverityContraindicated InteractionSeverity = "contraindicated"
	SeverityHigh            InteractionSeverity = "high"
	SeverityModerate        InteractionSeverity = "moderate"
	SeverityMinor           InteractionSeverity = "minor"
	SeverityUnknown         InteractionSeverity = "unknown"
)

// IsSevere reports whether the severity warrants blocking review.
func (s InteractionSeverity) IsSevere() bool {
	return s == SeverityContraindicated || s == SeverityHigh
}

// DrugInteraction describes an interaction between two agents.
type DrugInteraction struct {
	DrugA          string              `json:"drug_a"`
	DrugB          string              `json:"drug_b"`
	Severity       InteractionSeverity `json:"severity"`
	Description    string              `json:"description"`
	Recommendation string              `json:"recommendation"`
	Source         string              `json:"source"`
}

// Configuration Models

// Config is the full-server application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	HIS      HISConfig      `mapstructure:"his"`
	External ExternalConfig `mapstructure:"external"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	MCP      MCPConfig      `mapstructure:"mcp"`
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// APIKey guards the REST API when non-empty; empty disables auth.
	APIKey string `mapstructure:"api_key"`
}

// DatabaseConfig is the PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// HISConfig configures the hospital information system client.
type HISConfig struct {
	Mode      string        `mapstructure:"mode"` // mock, http
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// ExternalConfig configures the drug reference API clients.
type ExternalConfig struct {
	RxNorm  APIClientConfig `mapstructure:"rxnorm"`
	OpenFDA APIClientConfig `mapstructure:"openfda"`
	TFDA    APIClientConfig `mapstructure:"tfda"`
	NHI     APIClientConfig `mapstructure:"nhi"`
}

// APIClientConfig is shared configuration for one external API client.
type APIClientConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit int           `mapstructure:"rate_limit"`
}

// CacheConfig configures the Redis response cache.
type CacheConfig struct {
	RedisURL    string        `mapstructure:"redis_url"`
	DefaultTTL  time.Duration `mapstructure:"default_ttl"`
	MaxRetries  int           `mapstructure:"max_retries"`
	PoolSize    int           `mapstructure:"pool_size"`
	PoolTimeout time.Duration `mapstructure:"pool_timeout"`
}

// LoggingConfig configures logrus output.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// MCPConfig configures the MCP transport.
type MCPConfig struct {
	TransportType string `mapstructure:"transport_type"`
	HTTPHost      string `mapstructure:"http_host"`
	HTTPPort      int    `mapstructure:"http_port"`
}
