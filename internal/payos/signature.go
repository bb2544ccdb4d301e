package payos

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidSignature = errors.New("payos: invalid signature")

func sign(checksumKey, payload string) string {
	mac := hmac.New(sha256.New, []byte(checksumKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// PaymentRequestSignature signe les cinq champs imposés par payOS, triés
// alphabétiquement : amount, cancelUrl, description, orderCode, returnUrl
func PaymentRequestSignature(checksumKey string, amount, orderCode int64, description, cancelURL, returnURL string) string {
	payload := fmt.Sprintf("amount=%d&cancelUrl=%s&description=%s&orderCode=%d&returnUrl=%s",
		amount, cancelURL, description, orderCode, returnURL)
	return sign(checksumKey, payload)
}

// DataSignature signe un objet data : clés triées, "clé=valeur" joints par "&".
// null devient "", les objets et tableaux sont sérialisés en JSON.
func DataSignature(checksumKey string, data map[string]interface{}) (string, error) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := signValue(data[k])
		if err != nil {
			return "", fmt.Errorf("payos: field %s: %w", k, err)
		}
		parts = append(parts, k+"="+v)
	}
	return sign(checksumKey, strings.Join(parts, "&")), nil
}

func signValue(v interface{}) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		if t == "null" || t == "undefined" {
			return "", nil
		}
		return t, nil
	case json.Number:
		return t.String(), nil
	case bool:
		if t {
			return "true", nil
		}
		return "false", nil
	case float64:
		return fmt.Sprint(t), nil
	case map[string]interface{}, []interface{}:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return fmt.Sprint(v), nil
}

// VerifyData contrôle la signature d'un objet data brut (JSON)
func VerifyData(checksumKey string, rawData []byte, signature string) error {
	if checksumKey == "" || signature == "" {
		return ErrInvalidSignature
	}
	dec := json.NewDecoder(bytes.NewReader(rawData))
	dec.UseNumber()
	var data map[string]interface{}
	if err := dec.Decode(&data); err != nil {
		return fmt.Errorf("payos: decode data: %w", err)
	}
	expected, err := DataSignature(checksumKey, data)
	if err != nil {
		return err
	}
	if !hmac.Equal([]byte(expected), []byte(strings.ToLower(signature))) {
		return ErrInvalidSignature
	}
	return nil
}
