/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package aigen

import (
	"context"
	"errors"
)

var (
	// ErrQuota is a quota or overload response. Retryable.
	ErrQuota = errors.New("ai service quota exceeded or overloaded")
	// ErrCredentialExpired means the API key was rejected; the user must reconnect.
	ErrCredentialExpired = errors.New("ai service credential expired")
	// ErrGeneration is any other generation failure.
	ErrGeneration = errors.New("generation failed")
)

// FailureKind buckets an error for presentation.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureQuota
	FailureCredential
	FailureCanceled
	FailureGeneric
)

func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureQuota:
		return "quota"
	case FailureCredential:
		return "credential"
	case FailureCanceled:
		return "canceled"
	default:
		return "generic"
	}
}

// Classify maps err to its FailureKind.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return FailureNone
	case errors.Is(err, ErrQuota):
		return FailureQuota
	case errors.Is(err, ErrCredentialExpired):
		return FailureCredential
	case errors.Is(err, context.Canceled):
		return FailureCanceled
	default:
		return FailureGeneric
	}
}

// Retryable reports whether a later attempt may succeed without user action.
func Retryable(err error) bool { return Classify(err) == FailureQuota }

// UserMessage is the inline status text shown on a failed unit.
func UserMessage(err error) string {
	switch Classify(err) {
	case FailureNone:
		return ""
	case FailureQuota:
		return "The AI service is busy or out of quota. Try again in a moment."
	case FailureCredential:
		return "Your AI service key has expired. Reconnect to continue."
	case FailureCanceled:
		return "Generation stopped."
	default:
		return "Generation failed: " + err.Error()
	}
}
