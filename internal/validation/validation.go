/*
 * Copyright 2026 The Yorkie Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package validation validates the values coming from configuration files
// and clients.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	entranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	// itineraryIDRegex accepts the unreserved characters of RFC 3986 so
	// that ids can be used in URL paths and storage keys as they are.
	itineraryIDRegex = regexp.MustCompile(`^[a-zA-Z0-9\-._~]+$`)
	slugRegex        = regexp.MustCompile(`^[a-z0-9\-._~]+$`)
	durationRegex    = regexp.MustCompile(`^(\d{1,2}h\s?)?(\d{1,2}m\s?)?(\d{1,2}s)?(\d{1,3}ms)?$`)
)

var (
	defaultValidator = validator.New()
	defaultEn        = en.New()
	uni              = ut.New(defaultEn, defaultEn)

	// trans translates the violations into English descriptions.
	trans, _ = uni.GetTranslator(defaultEn.Locale())
)

// FieldLevel is the field given to custom validation functions.
type FieldLevel = validator.FieldLevel

// Violation is a rule a value does not satisfy.
type Violation struct {
	Tag         string
	Field       string
	Err         error
	Description string
}

// Error returns the error message.
func (v Violation) Error() string {
	if v.Description != "" {
		return v.Description
	}
	return v.Err.Error()
}

// StructError is the error returned by the validation of a struct.
type StructError struct {
	Violations []Violation
}

// Error returns the error message.
func (s *StructError) Error() string {
	messages := make([]string, 0, len(s.Violations))
	for _, v := range s.Violations {
		messages = append(messages, v.Error())
	}
	return strings.Join(messages, "; ")
}

// RegisterValidation registers a custom validation under the tag. It is meant
// to be called from init.
func RegisterValidation(tag string, fn func(FieldLevel) bool) error {
	if err := defaultValidator.RegisterValidation(tag, fn); err != nil {
		return fmt.Errorf("register validation %s: %w", tag, err)
	}
	return nil
}

// RegisterTranslation registers the message describing a violation of the
// tag. `{0}` is replaced with the field name.
func RegisterTranslation(tag, msg string) error {
	if err := defaultValidator.RegisterTranslation(
		tag,
		trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	); err != nil {
		return fmt.Errorf("register translation %s: %w", tag, err)
	}
	return nil
}

// ValidateValue validates the value against the comma separated rules.
func ValidateValue(v any, tag string) error {
	err := defaultValidator.Var(v, tag)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return err
	}
	return Violation{
		Tag:         errs[0].Tag(),
		Err:         errs[0],
		Description: errs[0].Translate(trans),
	}
}

// ValidateStruct validates the fields of the struct against their
// `validate` tags.
func ValidateStruct(s any) error {
	err := defaultValidator.Struct(s)
	if err == nil {
		return nil
	}

	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	structError := &StructError{}
	for _, e := range errs {
		structError.Violations = append(structError.Violations, Violation{
			Tag:         e.Tag(),
			Field:       e.StructField(),
			Err:         e,
			Description: e.Translate(trans),
		})
	}
	return structError
}

func init() {
	if err := entranslations.RegisterDefaultTranslations(defaultValidator, trans); err != nil {
		panic(fmt.Errorf("register default translations: %w", err))
	}

	rules := []struct {
		tag   string
		regex *regexp.Regexp
		msg   string
	}{
		{"itinerary_id", itineraryIDRegex, "{0} must only contain letters, numbers, hyphen, period, underscore, and tilde"},
		{"slug", slugRegex, "{0} must only contain lowercase letters, numbers, hyphen, period, underscore, and tilde"},
		{"duration", durationRegex, "{0} must be a valid time duration string format"},
	}
	for _, r := range rules {
		regex := r.regex
		if err := RegisterValidation(r.tag, func(level FieldLevel) bool {
			return regex.MatchString(level.Field().String())
		}); err != nil {
			panic(err)
		}
		if err := RegisterTranslation(r.tag, r.msg); err != nil {
			panic(err)
		}
	}
}
