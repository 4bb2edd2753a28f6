package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmacy-mcp-server/internal/service"
)

type validateOrderRequest struct {
	DrugCode    string   `json:"drug_code" binding:"required"`
	Dose        float64  `json:"dose" binding:"required"`
	DoseUnit    string   `json:"dose_unit" binding:"required"`
	Route       string   `json:"route" binding:"required"`
	Frequency   string   `json:"frequency" binding:"required"`
	PatientCrCl *float64 `json:"patient_crcl,omitempty"`
}

type submitOrderRequest struct {
	PatientID        string   `json:"patient_id" binding:"required"`
	DrugCode         string   `json:"drug_code" binding:"required"`
	Dose             float64  `json:"dose" binding:"required"`
	DoseUnit         string   `json:"dose_unit" binding:"required"`
	Route            string   `json:"route" binding:"required"`
	Frequency        string   `json:"frequency" binding:"required"`
	DurationDays     int      `json:"duration_days,omitempty"`
	PhysicianID      string   `json:"physician_id" binding:"required"`
	Notes            string   `json:"notes,omitempty"`
	PatientCrCl      *float64 `json:"patient_crcl,omitempty"`
	OverrideWarnings bool     `json:"override_warnings,omitempty"`
}

type discontinueOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type crclRequest struct {
	AgeYears        int     `json:"age_years" binding:"required"`
	WeightKg        float64 `json:"weight_kg" binding:"required"`
	SerumCreatinine float64 `json:"serum_creatinine" binding:"required"`
	Sex             string  `json:"sex" binding:"required"`
}

type weightBasedDoseRequest struct {
	DosePerKg float64 `json:"dose_per_kg" binding:"required"`
	WeightKg  float64 `json:"weight_kg" binding:"required"`
	DoseUnit  string  `json:"dose_unit" binding:"required"`
	MaxDose   float64 `json:"max_dose,omitempty"`
	RoundTo   float64 `json:"round_to,omitempty"`
}

type bsaDoseRequest struct {
	DosePerM2 float64 `json:"dose_per_m2" binding:"required"`
	HeightCm  float64 `json:"height_cm" binding:"required"`
	WeightKg  float64 `json:"weight_kg" binding:"required"`
	DoseUnit  string  `json:"dose_unit" binding:"required"`
	MaxDose   float64 `json:"max_dose,omitempty"`
}

type infusionRateRequest struct {
	TotalDose     float64 `json:"total_dose" binding:"required"`
	DoseUnit      string  `json:"dose_unit" binding:"required"`
	VolumeML      float64 `json:"volume_ml" binding:"required"`
	DurationHours float64 `json:"duration_hours" binding:"required"`
}

type interactionCheckRequest struct {
	Drugs []string `json:"drugs" binding:"required"`
}

func (s *Server) handleValidateOrder(c *gin.Context) {
	var req validateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.prescription.ValidateOrder(service.ValidateOrderRequest{
		DrugCode:    req.DrugCode,
		Dose:        req.Dose,
		DoseUnit:    req.DoseUnit,
		Route:       req.Route,
		Frequency:   req.Frequency,
		PatientCrCl: req.PatientCrCl,
	})

	c.JSON(http.StatusOK, gin.H{"validation": result})
}

func (s *Server) handleSubmitOrder(c *gin.Context) {
	var req submitOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.prescription.SubmitOrder(c.Request.Context(), service.SubmitOrderRequest{
		PatientID:        req.PatientID,
		DrugCode:         req.DrugCode,
		Dose:             req.Dose,
		DoseUnit:         req.DoseUnit,
		Route:            req.Route,
		Frequency:        req.Frequency,
		DurationDays:     req.DurationDays,
		PhysicianID:      req.PhysicianID,
		Notes:            req.Notes,
		PatientCrCl:      req.PatientCrCl,
		OverrideWarnings: req.OverrideWarnings,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"patient_id": req.PatientID,
			"drug_code":  req.DrugCode,
			"error":      err.Error(),
		}).Error("Order submission failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if !result.Success {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"order": result})
		return
	}

	s.events.Publish(OrderEvent{
		Type:      EventOrderSubmitted,
		OrderID:   result.OrderID,
		PatientID: req.PatientID,
		DrugCode:  req.DrugCode,
	})

	c.JSON(http.StatusCreated, gin.H{"order": result})
}

func (s *Server) handleDiscontinueOrder(c *gin.Context) {
	orderID := c.Param("id")

	var req discontinueOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.prescription.StopOrder(c.Request.Context(), orderID, req.Reason)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	if !result.Success {
		c.JSON(http.StatusNotFound, gin.H{"stop": result})
		return
	}

	s.events.Publish(OrderEvent{
		Type:    EventOrderDiscontinued,
		OrderID: orderID,
	})

	c.JSON(http.StatusOK, gin.H{"stop": result})
}

func (s *Server) handleOrderHistory(c *gin.Context) {
	if s.historyStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order history is not configured"})
		return
	}

	rec, err := s.historyStore.GetByOrderID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"record": rec})
}

func (s *Server) handleSearchFormulary(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'q' is required"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	items := s.prescription.SearchFormulary(query, limit)
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleListHighAlert(c *gin.Context) {
	items := s.prescription.ListHighAlertDrugs()
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleListRenalDrugs(c *gin.Context) {
	items := s.prescription.ListRenalAdjustmentDrugs()
	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleGetDrug(c *gin.Context) {
	code := c.Param("code")

	item := s.prescription.GetFormularyItem(code)
	if item == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "drug not found in formulary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"drug": item})
}

func (s *Server) handleRenalAdjustment(c *gin.Context) {
	code := c.Param("code")

	crcl, err := strconv.ParseFloat(c.Query("crcl"), 64)
	if err != nil || crcl < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter 'crcl' must be a non-negative number"})
		return
	}

	if s.prescription.GetFormularyItem(code) == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "drug not found in formulary"})
		return
	}

	adjustment := s.prescription.GetRenalAdjustment(code, crcl)
	c.JSON(http.StatusOK, gin.H{"adjustment": adjustment})
}

func (s *Server) handleCalculateCrCl(c *gin.Context) {
	var req crclRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dosage.CalculateCreatinineClearance(req.AgeYears, req.WeightKg, req.SerumCreatinine, req.Sex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"crcl": result})
}

func (s *Server) handleWeightBasedDose(c *gin.Context) {
	var req weightBasedDoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dosage.CalculateWeightBasedDose(req.DosePerKg, req.WeightKg, req.DoseUnit, req.MaxDose, req.RoundTo)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dose": result})
}

func (s *Server) handleBSADose(c *gin.Context) {
	var req bsaDoseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dosage.CalculateBSABasedDose(req.DosePerM2, req.HeightCm, req.WeightKg, req.DoseUnit, req.MaxDose)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dose": result})
}

func (s *Server) handleInfusionRate(c *gin.Context) {
	var req infusionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.dosage.CalculateInfusionRate(req.TotalDose, req.DoseUnit, req.VolumeML, req.DurationHours)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"infusion": result})
}

func (s *Server) handleCheckInteractions(c *gin.Context) {
	var req interactionCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := s.interaction.CheckMultiple(c.Request.Context(), req.Drugs)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"interactions": result})
}

func (s *Server) handleCheckFoodInteractions(c *gin.Context) {
	result, err := s.interaction.CheckFood(c.Request.Context(), c.Param("drug"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"food_interactions": result})
}

func (s *Server) handleGetPatient(c *gin.Context) {
	patient, err := s.prescription.GetPatient(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	if patient == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "patient not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"patient": patient})
}

func (s *Server) handlePatientOrders(c *gin.Context) {
	orders, err := s.prescription.GetPatientActiveOrders(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}

func (s *Server) handlePatientHistory(c *gin.Context) {
	if s.historyStore == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "order history is not configured"})
		return
	}

	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	records, err := s.historyStore.ListByPatient(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}
