package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/calimingo/order-dashboard-service/internal/auth"
	"github.com/calimingo/order-dashboard-service/internal/db"
	"github.com/calimingo/order-dashboard-service/internal/export"
	"github.com/calimingo/order-dashboard-service/internal/fetch"
	"github.com/calimingo/order-dashboard-service/internal/mail"
	"github.com/calimingo/order-dashboard-service/internal/models"
	"github.com/calimingo/order-dashboard-service/internal/parser"
	"github.com/calimingo/order-dashboard-service/internal/storage"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.2.0"
)

// Handler handles HTTP requests for order processing
type Handler struct {
	config  *models.Config
	fetcher *fetch.Client
	export  *export.Generator
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config) *Handler {
	return &Handler{
		config:  config,
		fetcher: fetch.New(config.Fetch),
		export:  export.NewGenerator(config.Export),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Main endpoints
	router.HandleFunc("/api/parse-order", h.ParseOrder).Methods("POST")
	router.HandleFunc("/api/orders", h.GetOrders).Methods("GET")

	// Order CRUD
	router.HandleFunc("/api/order/{id}", h.GetOrder).Methods("GET")
	router.HandleFunc("/api/order/{id}", h.UpdateOrder).Methods("PUT")
	router.HandleFunc("/api/order/{id}", h.DeleteOrder).Methods("DELETE")
	router.HandleFunc("/api/order/{id}/export", h.ExportOrder).Methods("GET")

	// Statistics
	router.HandleFunc("/api/stats", h.GetStats).Methods("GET")

	// Auth
	router.HandleFunc("/api/login", auth.LoginHandler).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Memory    MemoryStats   `json:"memory"`
	Database  ServiceStatus `json:"database"`
	Storage   ServiceStatus `json:"storage"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	// Memory statistics
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Database: h.checkDatabase(),
		Storage:  h.checkStorage(),
	}

	// The parser itself has no external dependencies, so a missing database
	// or bucket degrades persistence, never parsing.
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkDatabase verifies PostgreSQL connection
func (h *Handler) checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{
			Available: false,
			Error:     "database pool not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "PostgreSQL via PgBouncer",
	}
}

// checkStorage verifies MinIO connection
func (h *Handler) checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{
			Available: false,
			Error:     "storage client not initialized",
		}
	}

	return ServiceStatus{
		Available: true,
		Version:   "MinIO S3",
	}
}

// ParseOrder handles order document parsing. The caller sends either a
// multipart "file" field (an .eml message or a saved HTML page) or a "url"
// field pointing at the partner view page.
func (h *Handler) ParseOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	startTime := time.Now()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized: "+err.Error())
		return
	}

	// Parse multipart form
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	var doc *mail.Document
	var rawData []byte
	var contentType string
	var sourceName string

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()

		rawData, err = io.ReadAll(file)
		if err != nil {
			h.sendError(w, http.StatusInternalServerError, "Failed to read file")
			return
		}

		contentType = header.Header.Get("Content-Type")
		sourceName = header.Filename

		doc, err = h.decodeDocument(rawData, contentType, sourceName)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else if pageURL := r.FormValue("url"); pageURL != "" {
		doc, err = h.fetcher.FetchOrderPage(ctx, pageURL)
		if err != nil {
			h.sendError(w, http.StatusBadGateway, err.Error())
			return
		}
		rawData = []byte(doc.HTML)
		contentType = "text/html"
		sourceName = "order_page.html"
	} else {
		h.sendError(w, http.StatusBadRequest, "No document provided (use 'file' or 'url' field)")
		return
	}

	result, err := parser.ParseDocument(doc.HTML, doc.Text, h.config.Parser.Tolerance)
	totalDuration := time.Since(startTime).Seconds()
	if err != nil {
		response := models.ParseResponse{
			Success:       false,
			Error:         err.Error(),
			TotalDuration: totalDuration,
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
		return
	}

	// Upload source document to MinIO (if configured)
	var documentURL string
	if storage.Client != nil {
		filename := fmt.Sprintf("%s_%s%s",
			time.Now().Format("20060102_150405"),
			uuid.New().String()[:8],
			storage.GetFileExtension(contentType),
		)
		documentURL, err = storage.UploadOrderDocument(
			ctx,
			result.Location.OrderNo,
			filename,
			bytes.NewReader(rawData),
			int64(len(rawData)),
			contentType,
		)
		if err != nil {
			// Log but don't fail - document storage is optional
			fmt.Printf("Warning: failed to upload document to MinIO: %v\n", err)
		}
	}

	// Save to orders table
	var savedOrder *models.SavedOrder
	if db.Pool != nil {
		resultJSON := ""
		if rj, err := json.Marshal(result); err == nil {
			resultJSON = string(rj)
		}

		grandTotal := decimal.Zero
		if result.Location.GrandTotal != nil {
			grandTotal = *result.Location.GrandTotal
		}

		order := &models.SavedOrder{
			OrderNo:     result.Location.OrderNo,
			ClientName:  result.Location.ClientName,
			Address:     result.Location.Address,
			GrandTotal:  grandTotal,
			ItemsTotal:  result.Reconciled.ItemsTotal,
			TotalsValid: result.Reconciled.IsValid,
			DocumentURL: documentURL,
			ItemsJSON:   resultJSON,
		}

		if err := db.SaveOrder(ctx, order); err != nil {
			fmt.Printf("Warning: failed to save order to DB: %v\n", err)
		} else {
			savedOrder = order
		}
	}

	responseData := map[string]interface{}{
		"success":       true,
		"result":        result,
		"totalDuration": totalDuration,
	}
	if savedOrder != nil {
		responseData["order_id"] = savedOrder.ID
		responseData["saved_to_db"] = true
	} else {
		responseData["saved_to_db"] = false
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(responseData)
}

// decodeDocument turns uploaded bytes into the {html, text} pair, deciding
// between mail and bare-HTML handling by content type, then extension, then
// a cheap sniff for mail headers.
func (h *Handler) decodeDocument(data []byte, contentType, filename string) (*mail.Document, error) {
	isEML := strings.Contains(contentType, "message/rfc822") ||
		strings.HasSuffix(strings.ToLower(filename), ".eml")
	if !isEML && !strings.Contains(contentType, "html") {
		head := data
		if len(head) > 512 {
			head = head[:512]
		}
		isEML = bytes.Contains(head, []byte("MIME-Version:")) || bytes.Contains(head, []byte("\nFrom:"))
	}

	if isEML {
		doc, err := mail.ParseEML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse mail message: %w", err)
		}
		return doc, nil
	}
	return mail.FromHTML(string(data)), nil
}

// GetOrders returns recently parsed orders
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()

	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	orders, err := db.GetOrders(ctx, 100)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get orders: %v", err))
		return
	}

	// Generate presigned URLs for stored documents
	for i := range orders {
		if orders[i].DocumentURL != "" && storage.Client != nil {
			if presignedURL, err := storage.GetPresignedURL(ctx, orders[i].DocumentURL); err == nil {
				orders[i].DocumentURL = presignedURL
			}
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

// GetOrder returns a single saved order
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	orderID := vars["id"]

	order, err := db.GetOrderByID(ctx, orderID)
	if err != nil {
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("order not found: %v", err))
		return
	}

	// Generate presigned URL for the source document
	if order.DocumentURL != "" && storage.Client != nil {
		if presignedURL, err := storage.GetPresignedURL(ctx, order.DocumentURL); err == nil {
			order.DocumentURL = presignedURL
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"order":   order,
	})
}

// UpdateOrder updates saved order data
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	orderID := vars["id"]

	var updates map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Only allow certain fields to be updated
	allowed := map[string]bool{
		"order_no":     true,
		"client_name":  true,
		"address":      true,
		"grand_total":  true,
		"totals_valid": true,
	}
	filtered := make(map[string]interface{})
	for k, v := range updates {
		if allowed[k] {
			filtered[k] = v
		}
	}

	if len(filtered) == 0 {
		h.sendError(w, http.StatusBadRequest, "no valid fields to update")
		return
	}

	if err := db.UpdateOrder(ctx, orderID, filtered); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to update order")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "order updated",
	})
}

// DeleteOrder removes a saved order
func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	orderID := vars["id"]

	// Optionally: delete stored document from MinIO
	if storage.Client != nil {
		order, err := db.GetOrderByID(ctx, orderID)
		if err == nil && order.DocumentURL != "" {
			// Delete document (ignore errors)
			_ = storage.DeleteDocument(ctx, order.DocumentURL)
		}
	}

	if err := db.DeleteOrder(ctx, orderID); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to delete order")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "order deleted",
	})
}

// ExportOrder streams a saved order as an xlsx workbook.
func (h *Handler) ExportOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	vars := mux.Vars(r)
	orderID := vars["id"]

	order, err := db.GetOrderByID(ctx, orderID)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusNotFound, fmt.Sprintf("order not found: %v", err))
		return
	}

	var result models.ParseResult
	if err := json.Unmarshal([]byte(order.ItemsJSON), &result); err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusInternalServerError, "stored parse result is unreadable")
		return
	}

	opts := export.Options{
		IncludeMainCategories: h.config.Export.IncludeMainCategories,
		IncludeSubcategories:  h.config.Export.IncludeSubcategories,
	}
	if v := r.URL.Query().Get("categories"); v != "" {
		opts.IncludeMainCategories = v == "true"
	}
	if v := r.URL.Query().Get("subcategories"); v != "" {
		opts.IncludeSubcategories = v == "true"
	}

	data, err := h.export.Generate(&result, opts)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to generate spreadsheet: %v", err))
		return
	}

	filename := fmt.Sprintf("order_%s.xlsx", order.OrderNo)
	if order.OrderNo == "" {
		filename = fmt.Sprintf("order_%s.xlsx", order.ID)
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// GetStats returns monthly statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	ctx := r.Context()
	if _, err := auth.GetClaimsFromContext(ctx); err != nil {
		h.sendError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	stats, err := db.GetMonthlyStats(ctx)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to get stats")
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
