package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/householdpro/backend/internal/assignment"
	"github.com/householdpro/backend/internal/models"
)

type importCounts struct {
	Parsed   int `json:"parsed"`
	Upserted int `json:"upserted"`
	Errors   int `json:"errors"`
}

type ImportSummary struct {
	Employees importCounts `json:"employees"`
	Bookings  importCounts `json:"bookings"`
	Errors    []string     `json:"errors"`
}

// @Summary Import CSV data
// @Description Upload employees and/or bookings CSV files. Rows are upserted by id.
// @Tags import
// @Accept multipart/form-data
// @Produce json
// @Param employees formData file false "employees.csv"
// @Param bookings formData file false "bookings.csv"
// @Success 200 {object} ImportSummary
// @Failure 400 {object} map[string]any
// @Router /api/import [post]
func (h *Handler) Import(c *gin.Context) {
	employeesFile, _ := c.FormFile("employees")
	bookingsFile, _ := c.FormFile("bookings")
	if employeesFile == nil && bookingsFile == nil {
		writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "employees or bookings file required", nil)
		return
	}
	for _, f := range []*multipart.FileHeader{employeesFile, bookingsFile} {
		if f != nil && !validateExt(f.Filename) {
			writeError(c, http.StatusBadRequest, "INVALID_REQUEST", "all files must be .csv", f.Filename)
			return
		}
	}

	now := time.Now().UTC()
	summary := ImportSummary{Errors: []string{}}

	var employees []models.Employee
	if employeesFile != nil {
		var errs []string
		employees, errs = parseEmployeesCSV(employeesFile, now)
		summary.Employees.Parsed = len(employees)
		summary.Employees.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}
	var bookings []models.Booking
	if bookingsFile != nil {
		var errs []string
		bookings, errs = parseBookingsCSV(bookingsFile, now)
		summary.Bookings.Parsed = len(bookings)
		summary.Bookings.Errors = len(errs)
		summary.Errors = append(summary.Errors, errs...)
	}
	if len(summary.Errors) > 0 {
		writeError(c, http.StatusBadRequest, "CSV_PARSE_ERROR", "CSV validation errors", summary.Errors)
		return
	}

	ctx := c.Request.Context()
	// Employees go first: bookings reference them.
	if len(employees) > 0 {
		n, err := h.Store.UpsertEmployees(ctx, employees)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to upsert employees", err.Error())
			return
		}
		summary.Employees.Upserted = int(n)
	}
	if len(bookings) > 0 {
		n, err := h.Store.UpsertBookings(ctx, bookings)
		if err != nil {
			writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to upsert bookings", err.Error())
			return
		}
		summary.Bookings.Upserted = int(n)
	}
	h.Logger.Info().
		Int("employees", summary.Employees.Upserted).
		Int("bookings", summary.Bookings.Upserted).
		Msg("csv import finished")
	c.JSON(http.StatusOK, summary)
}

// readCSV opens an uploaded file and calls fn for every data row with its line number.
func readCSV(file *multipart.FileHeader, fn func(rec []string, index map[string]int, line int)) []string {
	f, err := file.Open()
	if err != nil {
		return []string{err.Error()}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	headers, err := reader.Read()
	if err != nil {
		return []string{file.Filename + ": failed to read header"}
	}
	index := headerIndex(headers)
	var errs []string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", file.Filename, err))
			continue
		}
		line, _ := reader.FieldPos(0)
		fn(rec, index, line)
	}
	return errs
}

func parseEmployeesCSV(file *multipart.FileHeader, now time.Time) ([]models.Employee, []string) {
	var out []models.Employee
	var errs []string
	rowErr := func(line int, format string, args ...any) {
		errs = append(errs, fmt.Sprintf("%s line %d: %s", file.Filename, line, fmt.Sprintf(format, args...)))
	}

	fileErrs := readCSV(file, func(rec []string, index map[string]int, line int) {
		e := models.Employee{
			ID:             getFieldAny(rec, index, "id", "employee_id", "employee id"),
			Name:           getFieldAny(rec, index, "name", "full_name", "full name"),
			Phone:          getFieldAny(rec, index, "phone", "phone_number", "mobile"),
			Email:          getFieldAny(rec, index, "email"),
			Location:       getFieldAny(rec, index, "location", "city", "base_location"),
			ExpertiseAreas: splitTags(getFieldAny(rec, index, "expertise_areas", "expertise", "categories")),
			Skills:         splitTags(getFieldAny(rec, index, "skills")),
			UpdatedAt:      now,
		}
		if e.ID == "" {
			e.ID = fmt.Sprintf("EMP-%03d", len(out)+1)
		}
		if e.Name == "" {
			rowErr(line, "name required")
			return
		}

		var ok bool
		if e.Rating, ok = parseScore(getFieldAny(rec, index, "rating"), 0, maxRating); !ok {
			rowErr(line, "rating must be a number between 0 and 5")
			return
		}
		if raw := getFieldAny(rec, index, "customer_satisfaction_score", "satisfaction", "csat"); raw != "" {
			score, ok := parseScore(raw, 0, maxSatisfaction)
			if !ok {
				rowErr(line, "customer_satisfaction_score must be a number between 0 and 10")
				return
			}
			e.CustomerSatisfactionScore = &score
		}
		if e.IsActive, ok = parseFlag(getFieldAny(rec, index, "is_active", "active"), true); !ok {
			rowErr(line, "is_active must be a boolean")
			return
		}
		if e.IsAvailable, ok = parseFlag(getFieldAny(rec, index, "is_available", "available"), true); !ok {
			rowErr(line, "is_available must be a boolean")
			return
		}
		out = append(out, e)
	})
	return out, append(errs, fileErrs...)
}

func parseBookingsCSV(file *multipart.FileHeader, now time.Time) ([]models.Booking, []string) {
	var out []models.Booking
	var errs []string
	rowErr := func(line int, format string, args ...any) {
		errs = append(errs, fmt.Sprintf("%s line %d: %s", file.Filename, line, fmt.Sprintf(format, args...)))
	}

	fileErrs := readCSV(file, func(rec []string, index map[string]int, line int) {
		b := models.Booking{
			ID:              getFieldAny(rec, index, "id", "booking_id", "booking id"),
			CustomerID:      getFieldAny(rec, index, "customer_id", "customer"),
			ServiceID:       getFieldAny(rec, index, "service_id"),
			ServiceName:     getFieldAny(rec, index, "service_name", "service"),
			CategoryName:    getFieldAny(rec, index, "category_name", "category"),
			SubcategoryName: getFieldAny(rec, index, "subcategory_name", "subcategory"),
			StartTime:       getFieldAny(rec, index, "start_time", "start"),
			EndTime:         getFieldAny(rec, index, "end_time", "end"),
			AddressLine:     getFieldAny(rec, index, "address_line", "address"),
			City:            getFieldAny(rec, index, "city"),
			Status:          models.BookingStatus(strings.ToLower(getFieldAny(rec, index, "status"))),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if b.ID == "" {
			rowErr(line, "booking id required")
			return
		}
		date, err := time.Parse(models.DateFormat, getFieldAny(rec, index, "scheduled_date", "date"))
		if err != nil {
			rowErr(line, "scheduled_date must be YYYY-MM-DD")
			return
		}
		b.ScheduledDate = date
		if _, err := assignment.ParseWindow(b.StartTime, b.EndTime); err != nil {
			rowErr(line, "invalid time window: %v", err)
			return
		}
		if b.Status == "" {
			b.Status = models.BookingPending
		}
		if !b.Status.Valid() {
			rowErr(line, "unknown status %q", b.Status)
			return
		}
		if emp := getFieldAny(rec, index, "assigned_employee_id", "employee_id"); emp != "" {
			b.AssignedEmployeeID = &emp
		}
		out = append(out, b)
	})
	return out, append(errs, fileErrs...)
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		idx[normalizeHeader(h)] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func getFieldAny(rec []string, idx map[string]int, names ...string) string {
	for _, name := range names {
		if v := getField(rec, idx, normalizeHeader(name)); v != "" {
			return v
		}
	}
	return ""
}

func normalizeHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.ToLower(strings.TrimSpace(h))
}

// splitTags splits a ; | or , separated list, dropping blanks and
// case-insensitive duplicates.
func splitTags(raw string) []string {
	raw = strings.NewReplacer(";", ",", "|", ",").Replace(raw)
	seen := map[string]struct{}{}
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		key := strings.ToLower(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Upper bounds of the imported scores: rating is 0..5, satisfaction 0..10.
const (
	maxRating       = 5.0
	maxSatisfaction = 10.0
)

// parseScore reads a score in [0, upper]. Empty input yields def.
func parseScore(raw string, def, upper float64) (float64, bool) {
	if raw == "" {
		return def, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > upper {
		return 0, false
	}
	return v, true
}

func parseFlag(raw string, def bool) (bool, bool) {
	switch strings.ToLower(raw) {
	case "":
		return def, true
	case "yes", "y":
		return true, true
	case "no", "n":
		return false, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func validateExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".csv"
}
