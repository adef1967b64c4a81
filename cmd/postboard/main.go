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

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/tomoncle/postboard/board"
	"github.com/tomoncle/postboard/config"
	"github.com/tomoncle/postboard/database"
	"github.com/tomoncle/postboard/model"
	"github.com/tomoncle/postboard/utils"
)

const usage = `Usage: postboard [-config file] <command> [arguments]
Commands:
  health                          print database health and pool stats
  posts                           list posts
  post <name> <email> <title> <text>
  comments <post_id>              list the comments of a post
  comment <post_id> <name> <text>
  contact <name> <email> <text>
  attach <post_id> <file_name> <size>
  delete <post_id>                delete a post with its comments and files`

func main() {
	configFile := flag.String("config", "", "config file (default "+config.DefaultConfigFile+")")
	flag.Usage = func() { fmt.Fprintln(flag.CommandLine.Output(), usage) }
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(*configFile, flag.Args()); err != nil {
		utils.NewLogger("POSTBOARD").WithError(err).Error("command failed")
		os.Exit(1)
	}
}

func run(configFile string, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}
	cfg.ApplyLogging()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	model.Register(database.DefaultRegistry())
	if _, err := database.InitDB(ctx, cfg.ConfigLoader()); err != nil {
		return err
	}
	defer func() { _ = database.CloseDB() }()

	b := board.New(database.GetTxManager())
	if err := b.Bind(); err != nil {
		return err
	}
	return dispatch(ctx, b, args)
}

func dispatch(ctx context.Context, b *board.Board, args []string) error {
	cmd, params := args[0], args[1:]
	need := func(n int) error {
		if len(params) < n {
			return fmt.Errorf("%s: expected %d arguments\n%s", cmd, n, usage)
		}
		return nil
	}

	switch cmd {
	case "health":
		return printJSON(map[string]interface{}{
			"health": database.GetHealthStatus(ctx),
			"stats":  database.GetDatabaseStats(),
		})
	case "posts":
		posts, err := b.PostService.FindAll(ctx)
		if err != nil {
			return err
		}
		return printJSON(posts)
	case "post":
		if err := need(4); err != nil {
			return err
		}
		post := &model.Post{Name: params[0], Email: params[1], Title: params[2], Text: params[3]}
		if err := b.PostService.Save(ctx, post); err != nil {
			return err
		}
		return printJSON(post)
	case "comments":
		if err := need(1); err != nil {
			return err
		}
		post, err := findPost(ctx, b, params[0])
		if err != nil {
			return err
		}
		comments, err := b.CommentService.FindAllCommentsByPost(ctx, post)
		if err != nil {
			return err
		}
		return printJSON(comments)
	case "comment":
		if err := need(3); err != nil {
			return err
		}
		post, err := findPost(ctx, b, params[0])
		if err != nil {
			return err
		}
		comment := &model.Comment{PostID: post.ID, Name: params[1], Text: params[2]}
		if err := b.CommentService.Save(ctx, comment); err != nil {
			return err
		}
		return printJSON(comment)
	case "contact":
		if err := need(3); err != nil {
			return err
		}
		msg := &model.UserMessage{Name: params[0], Email: params[1], Text: params[2]}
		if err := b.ContactService.SaveUserMessage(ctx, msg); err != nil {
			return err
		}
		return printJSON(msg)
	case "attach":
		if err := need(3); err != nil {
			return err
		}
		post, err := findPost(ctx, b, params[0])
		if err != nil {
			return err
		}
		size, err := strconv.ParseInt(params[2], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid size %q: %w", params[2], err)
		}
		file, err := b.FileService.Attach(ctx, post, params[1], "application/octet-stream", size)
		if err != nil {
			return err
		}
		return printJSON(file)
	case "delete":
		if err := need(1); err != nil {
			return err
		}
		post, err := findPost(ctx, b, params[0])
		if err != nil {
			return err
		}
		return b.DeletePost(ctx, post)
	default:
		return fmt.Errorf("unknown command %q\n%s", cmd, usage)
	}
}

func findPost(ctx context.Context, b *board.Board, rawID string) (*model.Post, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid post id %q: %w", rawID, err)
	}
	post, err := b.PostService.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("post %d not found", id)
	}
	return post, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
