// Package ingest decodifica y valida el archivo CSV de deals.
//
// El orden de las validaciones es contractual (gana la primera que falla):
// payload vacío, encoding, header, filas tipadas, y recién al final el caso
// "header válido pero cero filas de datos".
package ingest

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/phenrril/gemdeals/internal/domain"
)

var requiredColumns = []string{"customer", "item", "total", "quantity", "date"}

var minTotalCost = decimal.NewFromFloat(0.01)

// dateLayouts cubre las variantes ISO-8601 que aceptaba la fuente de datos:
// con y sin zona, con "T" o espacio como separador, y fecha sola.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseDeals valida el contenido completo y devuelve las filas tipadas.
// Cualquier fallo se reporta como *domain.InputError con su código estable.
func ParseDeals(content []byte) ([]domain.DealInput, error) {
	if len(content) == 0 {
		return nil, domain.NewInputError(domain.CodeFileEmpty, "el archivo está vacío")
	}
	if !utf8.Valid(content) {
		return nil, domain.NewInputError(domain.CodeFileWrongFormat, "el archivo no es texto UTF-8")
	}

	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, domain.NewInputError(domain.CodeFileWrongFormat, "no se pudo leer el header del CSV")
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}

	var rows []domain.DealInput
	line := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, domain.NewInputError(domain.CodeFileCorruptData,
				fmt.Sprintf("fila %d: CSV mal formado", line))
		}
		row, err := parseRow(record, cols, line)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, domain.NewInputError(domain.CodeFileEmpty, "el archivo no contiene deals")
	}
	return rows, nil
}

func mapHeader(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, domain.NewInputError(domain.CodeFileWrongFormat,
				fmt.Sprintf("falta la columna %q en el header", name))
		}
	}
	return cols, nil
}

func parseRow(record []string, cols map[string]int, line int) (domain.DealInput, error) {
	field := func(name string) (string, error) {
		idx := cols[name]
		if idx >= len(record) {
			return "", corrupt(line, "falta el campo %q", name)
		}
		v := strings.TrimSpace(record[idx])
		if v == "" {
			return "", corrupt(line, "el campo %q está vacío", name)
		}
		return v, nil
	}

	customer, err := field("customer")
	if err != nil {
		return domain.DealInput{}, err
	}
	item, err := field("item")
	if err != nil {
		return domain.DealInput{}, err
	}
	totalStr, err := field("total")
	if err != nil {
		return domain.DealInput{}, err
	}
	qtyStr, err := field("quantity")
	if err != nil {
		return domain.DealInput{}, err
	}
	dateStr, err := field("date")
	if err != nil {
		return domain.DealInput{}, err
	}

	total, err := decimal.NewFromString(totalStr)
	if err != nil {
		return domain.DealInput{}, corrupt(line, "total %q no es un decimal", totalStr)
	}
	if total.LessThan(minTotalCost) {
		return domain.DealInput{}, corrupt(line, "total %s es menor al mínimo 0.01", totalStr)
	}

	qty, err := strconv.Atoi(qtyStr)
	if err != nil {
		return domain.DealInput{}, corrupt(line, "quantity %q no es un entero", qtyStr)
	}
	if qty <= 0 {
		return domain.DealInput{}, corrupt(line, "quantity %d debe ser positivo", qty)
	}

	date, err := parseDate(dateStr)
	if err != nil {
		return domain.DealInput{}, corrupt(line, "date %q no es ISO-8601", dateStr)
	}

	return domain.DealInput{
		Customer: customer,
		Item:     item,
		Total:    total.Round(2),
		Quantity: qty,
		Date:     date,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("formato de fecha inválido: %q", s)
}

func corrupt(line int, format string, args ...any) *domain.InputError {
	return domain.NewInputError(domain.CodeFileCorruptData,
		fmt.Sprintf("fila %d: %s", line, fmt.Sprintf(format, args...)))
}
