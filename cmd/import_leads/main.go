// import_leads carga leads desde un CSV usando las mismas reglas que la API (estado por defecto NEW,
// validación de estado, propietario existente).
//
// Uso: go run ./cmd/import_leads [-latin1] -owner vendedor@empresa.com leads.csv
//
// Columnas reconocidas en la cabecera (orden libre, sin distinguir mayúsculas):
// name, email, phone, company, status. Las filas sin name se omiten.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
	"github.com/jhoicas/crm-api/internal/infrastructure/postgres"
	"github.com/jhoicas/crm-api/internal/infrastructure/sqlite"
	"github.com/jhoicas/crm-api/pkg/config"
	"github.com/jhoicas/crm-api/pkg/logger"
)

func main() {
	latin1 := flag.Bool("latin1", false, "el CSV viene en ISO-8859-1 (exportaciones de Excel)")
	ownerEmail := flag.String("owner", "", "email del usuario propietario de los leads (por defecto ADMIN_EMAIL)")
	flag.Parse()
	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "uso: import_leads [-latin1] [-owner email] archivo.csv")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level}).Component("import_leads")

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal().Err(err).Msg("abrir CSV")
	}
	defer f.Close()

	rows, err := readLeads(f, *latin1)
	if err != nil {
		log.Fatal().Err(err).Msg("leer CSV")
	}

	ctx := context.Background()
	users, leads, closeDB, err := openStores(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a la base de datos")
	}
	defer closeDB()

	email := *ownerEmail
	if email == "" {
		email = cfg.Auth.AdminEmail
	}
	owner, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		log.Fatal().Err(err).Msg("buscar propietario")
	}
	if owner == nil {
		log.Fatal().Str("email", email).Msg("propietario no encontrado")
	}

	uc := usecase.NewLeadUseCase(leads, users)
	principal := entity.Principal{ID: owner.ID, Role: owner.Role}
	created, failed := 0, 0
	for i, in := range rows {
		if _, err := uc.Create(ctx, principal, in); err != nil {
			failed++
			log.Warn().Err(err).Int("fila", i+2).Str("name", in.Name).Msg("lead omitido")
			continue
		}
		created++
	}
	log.Info().Int("creados", created).Int("fallidos", failed).Str("owner", owner.Email).Msg("importación terminada")
}

// readLeads convierte el CSV en peticiones de creación. La primera fila es la cabecera.
func readLeads(r io.Reader, latin1 bool) ([]dto.CreateLeadRequest, error) {
	if latin1 {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("CSV vacío")
		}
		return nil, fmt.Errorf("cabecera: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, errors.New("la cabecera debe incluir la columna name")
	}

	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	var out []dto.CreateLeadRequest
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		name := field(rec, "name")
		if name == "" {
			continue
		}
		out = append(out, dto.CreateLeadRequest{
			Name:    name,
			Email:   field(rec, "email"),
			Phone:   field(rec, "phone"),
			Company: field(rec, "company"),
			Status:  strings.ToUpper(field(rec, "status")),
		})
	}
	return out, nil
}

func openStores(ctx context.Context, cfg config.DBConfig) (repository.UserRepository, repository.LeadRepository, func(), error) {
	if cfg.Driver == config.DriverSQLite {
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewUserRepository(db), sqlite.NewLeadRepository(db), func() { _ = db.Close() }, nil
	}
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return postgres.NewUserRepository(pool), postgres.NewLeadRepository(pool), pool.Close, nil
}
