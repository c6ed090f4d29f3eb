// Package seed carga catálogos de ubicaciones, productos y stock inicial desde CSV
// y los aplica a través del motor de movimientos.
//
// Formato (una fila por registro, sin encabezado; las líneas con # se ignoran):
//
//	location,<id>,<nombre>[,<dirección>]
//	product,<id>,<sku>,<nombre>,<min_quantity>,<costo>[,<precio>]
//	stock,<product_id>,<location_id>,<cantidad>
package seed

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

//go:embed demo_catalog.csv
var demoCatalog []byte

// Opening stock inicial de un producto en una ubicación.
type Opening struct {
	ProductID  string
	LocationID string
	Quantity   int64
}

// Catalog contenido de un archivo de seed.
type Catalog struct {
	Locations []entity.Location
	Products  []entity.Product
	Openings  []Opening
}

// Options lectura del CSV.
type Options struct {
	Charset string // utf-8 (defecto) | iso-8859-1 | windows-1252
	Comma   rune   // defecto ','
}

// Demo catálogo de demostración embebido en el binario.
func Demo() (*Catalog, error) {
	return Load(bytes.NewReader(demoCatalog), Options{})
}

// Load parsea el catálogo. Los errores indican la línea.
func Load(r io.Reader, opts Options) (*Catalog, error) {
	decoded, err := decoder(r, opts.Charset)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1
	cr.Comment = '#'
	cr.TrimLeadingSpace = true
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}

	cat := &Catalog{}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leer catálogo: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if err := cat.add(rec); err != nil {
			return nil, fmt.Errorf("línea %d: %w", line, err)
		}
	}
	return cat, nil
}

func (c *Catalog) add(rec []string) error {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	switch strings.ToLower(rec[0]) {
	case "location":
		if len(rec) < 3 {
			return fmt.Errorf("location requiere id y nombre")
		}
		loc := entity.Location{ID: rec[1], Name: rec[2]}
		if len(rec) > 3 {
			loc.Address = rec[3]
		}
		c.Locations = append(c.Locations, loc)
	case "product":
		if len(rec) < 6 {
			return fmt.Errorf("product requiere id, sku, nombre, min_quantity y costo")
		}
		minQty, err := strconv.ParseInt(rec[4], 10, 64)
		if err != nil || minQty < 0 {
			return fmt.Errorf("min_quantity inválido %q", rec[4])
		}
		cost, err := decimal.NewFromString(rec[5])
		if err != nil {
			return fmt.Errorf("costo inválido %q", rec[5])
		}
		p := entity.Product{ID: rec[1], SKU: rec[2], Name: rec[3], MinQuantity: minQty, Cost: cost, Price: cost}
		if len(rec) > 6 && rec[6] != "" {
			if p.Price, err = decimal.NewFromString(rec[6]); err != nil {
				return fmt.Errorf("precio inválido %q", rec[6])
			}
		}
		c.Products = append(c.Products, p)
	case "stock":
		if len(rec) < 4 {
			return fmt.Errorf("stock requiere product_id, location_id y cantidad")
		}
		qty, err := strconv.ParseInt(rec[3], 10, 64)
		if err != nil || qty <= 0 {
			return fmt.Errorf("cantidad inválida %q", rec[3])
		}
		c.Openings = append(c.Openings, Opening{ProductID: rec[1], LocationID: rec[2], Quantity: qty})
	default:
		return fmt.Errorf("tipo de registro desconocido %q", rec[0])
	}
	return nil
}

// decoder convierte la entrada a UTF-8 (las planillas exportadas suelen venir en Latin-1).
func decoder(r io.Reader, charset string) (io.Reader, error) {
	switch strings.ToLower(strings.ReplaceAll(charset, "_", "-")) {
	case "", "utf-8", "utf8":
		return r, nil
	case "iso-8859-1", "iso8859-1", "latin1", "latin-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("charset no soportado: %q", charset)
	}
}
