package mirror

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var scopes = []string{sheets.SpreadsheetsScope, drive.DriveScope}

// TokenSource builds service-account credentials either from a key file's
// JSON or from an email and PEM private key.
func TokenSource(ctx context.Context, keyJSON []byte, email, privateKey string) (oauth2.TokenSource, error) {
	var cfg *jwt.Config
	if len(keyJSON) > 0 {
		c, err := google.JWTConfigFromJSON(keyJSON, scopes...)
		if err != nil {
			return nil, fmt.Errorf("parsing service account key: %w", err)
		}
		cfg = c
	} else {
		if email == "" || privateKey == "" {
			return nil, errors.New("no service account credentials")
		}
		cfg = &jwt.Config{
			Email:      email,
			PrivateKey: []byte(privateKey),
			Scopes:     scopes,
			TokenURL:   google.JWTTokenURL,
		}
	}
	return cfg.TokenSource(ctx), nil
}

// GoogleSheets implements Sheets on one spreadsheet.
type GoogleSheets struct {
	svc *sheets.Service
	id  string
}

func NewGoogleSheets(ctx context.Context, ts oauth2.TokenSource, spreadsheetID string) (*GoogleSheets, error) {
	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("creating sheets client: %w", err)
	}
	return &GoogleSheets{svc: svc, id: spreadsheetID}, nil
}

func (g *GoogleSheets) Clear(ctx context.Context, rng string) error {
	_, err := g.svc.Spreadsheets.Values.Clear(g.id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (g *GoogleSheets) Write(ctx context.Context, rng string, rows [][]any) error {
	_, err := g.svc.Spreadsheets.Values.Update(g.id, rng, &sheets.ValueRange{Values: rows}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

func (g *GoogleSheets) Read(ctx context.Context, rng string) ([][]any, error) {
	resp, err := g.svc.Spreadsheets.Values.Get(g.id, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}
