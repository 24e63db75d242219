package excel

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	rules "gridwatch/internal/rules/domain"
)

// Threshold workbooks carry a three-row header; data starts at row 4.
const headerRows = 3

// Column layout of the threshold workbook. Column A is a row label and
// is ignored.
const (
	colComponent = 1
	colParameter = 2
	colCondition = 3
	colValue     = 4
	colUnit      = 5
)

// Parse reads a threshold workbook and returns the simple rules it
// defines. Rows without a numeric value are skipped; a row with an
// empty component column continues the component above it.
func Parse(reader io.Reader) ([]rules.Rule, error) {
	file, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("excel: workbook has no sheets")
	}
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	var parsed []rules.Rule
	var lastComponent, lastParameter string
	for i, row := range rows {
		if i < headerRows {
			continue
		}
		value, ok := parseValue(cell(row, colValue))
		if !ok {
			continue
		}

		component := cell(row, colComponent)
		parameterName := cell(row, colParameter)
		if component == "" {
			component = lastComponent
			parameterName = lastParameter
		} else {
			lastComponent = component
			lastParameter = parameterName
		}

		category := componentCategory(component)
		parameter := inferParameter(parameterName)
		name := parameterName
		if name == "" {
			name = category + " threshold"
		}

		parsed = append(parsed, rules.Rule{
			ID:          "rule-" + uuid.NewString(),
			Name:        name,
			Description: parameterName,
			Severity:    inferSeverity(parameterName),
			Category:    category,
			Type:        rules.TypeSimple,
			Enabled:     true,
			AppliesTo:   rules.AppliesToAll,
			Conditions: []rules.Condition{{
				Parameter: parameter,
				Operator:  extractOperator(cell(row, colCondition)),
				Value:     value,
				Unit:      cell(row, colUnit),
				Source:    "excel",
			}},
		})
	}
	return parsed, nil
}

// extractOperator pulls a comparison operator out of free-form condition
// text. Bare < and > need surrounding spaces so ranges like "45-55" and
// arrows in prose do not match. Unrecognized text defaults to >=.
func extractOperator(text string) rules.Operator {
	text = strings.ToLower(text)
	switch {
	case strings.Contains(text, ">=") || strings.Contains(text, "≥"):
		return rules.OperatorGreaterOrEqual
	case strings.Contains(text, "<=") || strings.Contains(text, "≤"):
		return rules.OperatorLessOrEqual
	case strings.Contains(text, " > ") || strings.Contains(text, "greater than"):
		return rules.OperatorGreater
	case strings.Contains(text, " < ") || strings.Contains(text, "less than"):
		return rules.OperatorLess
	case strings.Contains(text, " = ") || strings.Contains(text, "equals") || strings.Contains(text, "equal to"):
		return rules.OperatorEqual
	default:
		return rules.OperatorGreaterOrEqual
	}
}

// componentCategory maps a workbook component name to a rule category.
func componentCategory(component string) string {
	component = strings.ToLower(component)
	switch {
	case component == "":
		return "Unknown"
	case strings.Contains(component, "fuel"):
		return "Fuel Sensor"
	case strings.Contains(component, "battery"):
		return "Battery"
	case strings.Contains(component, "grid"):
		return "Grid ACEM"
	case strings.Contains(component, "gen"):
		return "Gen ACEM"
	case strings.Contains(component, "solar"):
		return "Solar"
	case strings.Contains(component, "temp"):
		return "Temperature Sensor"
	case strings.Contains(component, "power alarm"):
		return "Power Alarms"
	case strings.Contains(component, "power"):
		return "Power Status"
	case strings.Contains(component, "tenant"):
		return "Tenant"
	default:
		return "Unknown"
	}
}

// inferParameter maps a workbook parameter description to the logical
// parameter the resolver understands.
func inferParameter(name string) string {
	param := strings.ToLower(name)
	switch {
	case param == "":
		return "unknown"
	case strings.Contains(param, "fuel"):
		return "fuel_level"
	case strings.Contains(param, "battery"):
		if strings.Contains(param, "voltage") || strings.Contains(param, "low") {
			return "battery_voltage"
		}
		return "battery_current"
	case strings.Contains(param, "voltage"), strings.Contains(param, "available"), strings.Contains(param, "phase"):
		return "voltage"
	case strings.Contains(param, "frequency"):
		return "grid_frequency"
	case strings.Contains(param, "temp"):
		return "temperature"
	case strings.Contains(param, "solar"):
		return "solar_current"
	case strings.Contains(param, "power"), strings.Contains(param, "site on"), strings.Contains(param, "site down"):
		return "rectifier_power"
	case strings.Contains(param, "current"), strings.Contains(param, "load"):
		return "current_sum"
	case strings.Contains(param, "tenant"):
		return "tenant_consumption"
	default:
		return "unknown"
	}
}

// inferSeverity guesses a severity from the parameter description.
func inferSeverity(name string) string {
	param := strings.ToLower(name)
	for _, word := range []string{"down", "not available", "off", "low", "drop"} {
		if strings.Contains(param, word) {
			return rules.SeverityCritical
		}
	}
	for _, word := range []string{"high", "refuel", "discharge", "charge"} {
		if strings.Contains(param, word) {
			return rules.SeverityWarning
		}
	}
	return rules.SeverityInfo
}

func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func parseValue(raw string) (float64, bool) {
	if raw == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
