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

// Package board wires the post board: posts, comments, contact messages
// and attachments on top of the generic repository and service.
package board

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/tomoncle/postboard"
	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/model"
	"github.com/tomoncle/postboard/repository"
)

// Board holds the repositories and services of one database.
type Board struct {
	tx *database.TxManager

	Comments CommentRepository
	Files    FileRepository

	PostService    postboard.Service[model.Post]
	CommentService CommentService
	ContactService ContactService
	FileService    FileService
}

// New wires every repository and service over tx. Post and contact saves
// are validated; post and comment saves emit notifications.
func New(tx *database.TxManager) *Board {
	b := &Board{
		tx:       tx,
		Comments: NewCommentRepository(tx),
		Files:    NewFileRepository(tx),
	}

	b.PostService = postboard.NewService[model.Post](
		repository.NewRepository[model.Post](tx),
		tx,
		postboard.WithCallbacks[model.Post](
			postboard.NewValidationCallback[model.Post](),
			NewNotificationCallback[model.Post]("post", func(p *model.Post) logrus.Fields {
				return logrus.Fields{"id": p.ID, "title": p.Title}
			}),
		),
	)
	b.CommentService = NewCommentService(b.Comments, tx,
		postboard.WithCallbacks[model.Comment](
			postboard.NewValidationCallback[model.Comment](),
			NewNotificationCallback[model.Comment]("comment", func(c *model.Comment) logrus.Fields {
				return logrus.Fields{"id": c.ID, "post_id": c.PostID}
			}),
		),
	)
	b.ContactService = NewContactService(repository.NewRepository[model.UserMessage](tx), tx,
		postboard.WithCallbacks[model.UserMessage](postboard.NewValidationCallback[model.UserMessage]()),
	)
	b.FileService = NewFileService(b.Files, tx,
		postboard.WithCallbacks[model.FileEntity](postboard.NewValidationCallback[model.FileEntity]()),
	)
	return b
}

// Bind validates every repository binding against the registered schema.
func (b *Board) Bind() error {
	return errors.Join(
		b.PostService.Repository().Bind(),
		b.Comments.Bind(),
		b.ContactService.Repository().Bind(),
		b.Files.Bind(),
	)
}

// InTransaction runs fn in one read-write transaction; services called
// with the ctx passed to fn join it.
func (b *Board) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.tx.ReadWrite(ctx, fn)
}

// DeletePost removes post together with its comments and attachments.
func (b *Board) DeletePost(ctx context.Context, post *model.Post) error {
	return b.InTransaction(ctx, func(ctx context.Context) error {
		comments, err := b.CommentService.FindAllCommentsByPost(ctx, post)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if err := b.CommentService.Delete(ctx, c); err != nil {
				return err
			}
		}
		files, err := b.FileService.FindAllByPost(ctx, post)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := b.FileService.Delete(ctx, f); err != nil {
				return err
			}
		}
		return b.PostService.Delete(ctx, post)
	})
}
