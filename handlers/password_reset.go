package handlers

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"p9e.in/loto/config"
	"p9e.in/loto/models"
)

const (
	backupCodeTTL         = 15 * time.Minute
	maxVerificationTries  = 5
	backupCodeDigitLength = 8
)

// CodeSender delivers a backup code to the user (email in production).
// Swappable so tests and dev runs don't need an SMTP relay.
var CodeSender = func(email, code string) error {
	log.Printf("📧 Backup code for %s: %s", email, code)
	return nil
}

func generateBackupCode() (string, error) {
	var b strings.Builder
	for i := 0; i < backupCodeDigitLength; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%d", n.Int64())
	}
	return b.String(), nil
}

type emailReq struct {
	Email string `json:"email"`
}

// SendBackupCode issues a one-time reset code to the account's email.
// Responds identically whether or not the account exists, so the
// endpoint can't be used to probe for registered addresses.
// POST /send-backup-code
func SendBackupCode(w http.ResponseWriter, r *http.Request) {
	var req emailReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	email := strings.ToLower(req.Email)

	var u models.User
	if err := config.DB.Where("email = ?", email).First(&u).Error; err == nil {
		code, err := generateBackupCode()
		if err != nil {
			http.Error(w, "could not generate code", http.StatusInternalServerError)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "could not generate code", http.StatusInternalServerError)
			return
		}
		expires := time.Now().Add(backupCodeTTL)
		updates := map[string]interface{}{
			"backup_code_hash":       string(hash),
			"backup_code_expires_at": expires,
			"verification_attempts":  0,
		}
		if err := config.DB.Model(&u).Updates(updates).Error; err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if err := CodeSender(email, code); err != nil {
			log.Printf("❌ Error sending backup code to %s: %v", email, err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "if the account exists, a code has been sent"})
}

type verifyCodeReq struct {
	Email      string `json:"email"`
	BackupCode string `json:"backup_code"`
}

// VerifyBackupCode checks a submitted reset code against the stored
// hash, counting attempts so the code can't be brute forced.
// POST /verify-backup-code
func VerifyBackupCode(w http.ResponseWriter, r *http.Request) {
	var req verifyCodeReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	var u models.User
	if err := config.DB.Where("email = ?", strings.ToLower(req.Email)).First(&u).Error; err != nil {
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}
	if u.BackupCodeHash == "" || u.BackupCodeExpiresAt == nil || time.Now().After(*u.BackupCodeExpiresAt) {
		http.Error(w, "code expired, request a new one", http.StatusUnauthorized)
		return
	}
	if u.VerificationAttempts >= maxVerificationTries {
		http.Error(w, "too many attempts, request a new code", http.StatusTooManyRequests)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.BackupCodeHash), []byte(req.BackupCode)); err != nil {
		config.DB.Model(&u).Update("verification_attempts", u.VerificationAttempts+1)
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]bool{"verified": true})
}

type updatePasswordReq struct {
	Email       string `json:"email"`
	BackupCode  string `json:"backup_code"`
	NewPassword string `json:"new_password"`
}

// UpdatePassword completes the reset: the code must still verify, then
// the password is replaced and the code invalidated.
// POST /update-password
func UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req updatePasswordReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if len(req.NewPassword) < 8 {
		http.Error(w, "password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var u models.User
	if err := config.DB.Where("email = ?", strings.ToLower(req.Email)).First(&u).Error; err != nil {
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}
	if u.BackupCodeHash == "" || u.BackupCodeExpiresAt == nil || time.Now().After(*u.BackupCodeExpiresAt) {
		http.Error(w, "code expired, request a new one", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.BackupCodeHash), []byte(req.BackupCode)); err != nil {
		config.DB.Model(&u).Update("verification_attempts", u.VerificationAttempts+1)
		http.Error(w, "invalid code", http.StatusUnauthorized)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "error hashing password", http.StatusInternalServerError)
		return
	}
	updates := map[string]interface{}{
		"password_hash":          string(hash),
		"backup_code_hash":       "",
		"backup_code_expires_at": nil,
		"verification_attempts":  0,
	}
	if err := config.DB.Model(&u).Updates(updates).Error; err != nil {
		http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type attemptsReq struct {
	Email string `json:"email"`
}

// UpdateVerificationAttempts lets the reset page bump the attempt
// counter when the client-side flow detects abuse.
// POST /update-verification-attempts
func UpdateVerificationAttempts(w http.ResponseWriter, r *http.Request) {
	var req attemptsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	var u models.User
	if err := config.DB.Where("email = ?", strings.ToLower(req.Email)).First(&u).Error; err != nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	config.DB.Model(&u).Update("verification_attempts", u.VerificationAttempts+1)
	w.WriteHeader(http.StatusNoContent)
}
