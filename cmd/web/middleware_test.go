package main

import (
	"net/http"
	"testing"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/stretchr/testify/require"
)

func Test_checkBearer(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		secret        string
		wantErr       bool
	}{
		{name: "valid", authorization: "Bearer s3cret", secret: "s3cret", wantErr: false},
		{name: "wrong token", authorization: "Bearer nope", secret: "s3cret", wantErr: true},
		{name: "no scheme", authorization: "s3cret", secret: "s3cret", wantErr: true},
		{name: "empty header", authorization: "", secret: "s3cret", wantErr: true},
		{name: "no secret configured", authorization: "Bearer ", secret: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkBearer(tt.authorization, tt.secret)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, errors.ErrUnauthorized)
			require.Equal(t, http.StatusUnauthorized, errors.HTTPStatus(err))
		})
	}
}
