/*
 * Copyright 2025 tomoncle.
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

package board

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/postboard"
	"github.com/tomoncle/postboard/utils"
)

const notifyLoggerName = "NOTIFY"

// NotificationCallback emits a notice after an entity is saved or deleted.
type NotificationCallback[T any] struct {
	postboard.NopCallback[T]
	logger  *logrus.Logger
	kind    string
	subject func(*T) logrus.Fields
}

// NewNotificationCallback returns a callback logging to the NOTIFY logger.
// subject selects the fields describing the entity and may be nil.
func NewNotificationCallback[T any](kind string, subject func(*T) logrus.Fields) *NotificationCallback[T] {
	return &NotificationCallback[T]{
		logger:  utils.NewLogger(notifyLoggerName),
		kind:    kind,
		subject: subject,
	}
}

func (c *NotificationCallback[T]) AfterSave(ctx context.Context, entity *T) error {
	c.entry(entity).Info("saved")
	return nil
}

func (c *NotificationCallback[T]) AfterDelete(ctx context.Context, entity *T) error {
	c.entry(entity).Info("deleted")
	return nil
}

func (c *NotificationCallback[T]) entry(entity *T) *logrus.Entry {
	fields := logrus.Fields{"kind": c.kind}
	if c.subject != nil {
		for k, v := range c.subject(entity) {
			fields[k] = v
		}
	}
	return c.logger.WithFields(fields)
}
