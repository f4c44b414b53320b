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


// Package s3 implements database interfaces on top of an S3 bucket. Every
// itinerary and every version list is a JSON object under the prefix.
package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/yorkie-team/tripsync/server/backend/database"
	"github.com/yorkie-team/tripsync/server/logging"
)

const (
	itinerariesDir = "itineraries/"
	versionsDir    = "versions/"
	objectSuffix   = ".json"
)

// Client is a client that reads or saves tripsync data in an S3 bucket.
type Client struct {
	config     *Config
	s3         *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
}

// Dial creates a session for the configured bucket and checks that the
// bucket is reachable.
func Dial(conf *Config) (*Client, error) {
	awsConfig := &aws.Config{
		Region:           aws.String(conf.Region),
		S3ForcePathStyle: aws.Bool(conf.ForcePathStyle),
	}
	if conf.Endpoint != "" {
		awsConfig.Endpoint = aws.String(conf.Endpoint)
	}
	if conf.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(conf.AccessKey, conf.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, fmt.Errorf("create aws session: %w", err)
	}

	client := s3.New(sess)
	if _, err := client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(conf.Bucket)}); err != nil {
		return nil, fmt.Errorf("head bucket %s: %w", conf.Bucket, err)
	}

	logging.DefaultLogger().Infof("S3 connected, Bucket: %s, Prefix: %s", conf.Bucket, conf.Prefix)

	return &Client{
		config:     conf,
		s3:         client,
		uploader:   s3manager.NewUploaderWithClient(client),
		downloader: s3manager.NewDownloaderWithClient(client),
	}, nil
}

// Close releases nothing; the session has no open resources.
func (c *Client) Close() error {
	return nil
}

// PutVersions stores the encoded version list of the given itinerary.
func (c *Client) PutVersions(ctx context.Context, itineraryID string, data []byte) error {
	if itineraryID == "" {
		return database.ErrInvalidItineraryID
	}

	if err := c.put(ctx, c.versionsKey(itineraryID), data); err != nil {
		return fmt.Errorf("put versions of %s: %w", itineraryID, err)
	}
	return nil
}

// GetVersions returns the encoded version list of the given itinerary.
func (c *Client) GetVersions(ctx context.Context, itineraryID string) ([]byte, error) {
	data, err := c.get(ctx, c.versionsKey(itineraryID))
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get versions of %s: %w", itineraryID, err)
	}
	return data, nil
}

// PutItinerary stores the authoritative state of an itinerary.
func (c *Client) PutItinerary(ctx context.Context, info *database.ItineraryInfo) error {
	if info.ID == "" {
		return database.ErrInvalidItineraryID
	}

	encoded, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("encode itinerary %s: %w", info.ID, err)
	}
	if err := c.put(ctx, c.itineraryKey(info.ID), encoded); err != nil {
		return fmt.Errorf("put itinerary %s: %w", info.ID, err)
	}
	return nil
}

// FindItinerary returns the stored state of the given itinerary.
func (c *Client) FindItinerary(ctx context.Context, id string) (*database.ItineraryInfo, error) {
	data, err := c.get(ctx, c.itineraryKey(id))
	if isNotFound(err) {
		return nil, fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get itinerary %s: %w", id, err)
	}

	info := &database.ItineraryInfo{}
	if err := json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("decode itinerary %s: %w", id, err)
	}
	return info, nil
}

// ListItineraries returns the stored itineraries ordered by id.
func (c *Client) ListItineraries(ctx context.Context) ([]*database.ItineraryInfo, error) {
	prefix := c.config.Prefix + itinerariesDir

	var ids []string
	err := c.s3.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(c.config.Bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, object := range page.Contents {
			key := strings.TrimPrefix(aws.StringValue(object.Key), prefix)
			if strings.HasSuffix(key, objectSuffix) {
				ids = append(ids, strings.TrimSuffix(key, objectSuffix))
			}
		}
		return true
	})
	if err != nil {
		return nil, fmt.Errorf("list itineraries: %w", err)
	}
	sort.Strings(ids)

	var infos []*database.ItineraryInfo
	for _, id := range ids {
		info, err := c.FindItinerary(ctx, id)
		if errors.Is(err, database.ErrItineraryNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// DeleteItinerary removes the itinerary and its versions.
func (c *Client) DeleteItinerary(ctx context.Context, id string) error {
	_, err := c.s3.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(c.itineraryKey(id)),
	})
	if isNotFound(err) {
		return fmt.Errorf("%s: %w", id, database.ErrItineraryNotFound)
	}
	if err != nil {
		return fmt.Errorf("head itinerary %s: %w", id, err)
	}

	_, err = c.s3.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(c.config.Bucket),
		Delete: &s3.Delete{
			Objects: []*s3.ObjectIdentifier{
				{Key: aws.String(c.itineraryKey(id))},
				{Key: aws.String(c.versionsKey(id))},
			},
			Quiet: aws.Bool(true),
		},
	})
	if err != nil {
		return fmt.Errorf("delete itinerary %s: %w", id, err)
	}
	return nil
}

func (c *Client) put(ctx context.Context, key string, data []byte) error {
	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	return err
}

func (c *Client) get(ctx context.Context, key string) ([]byte, error) {
	buf := aws.NewWriteAtBuffer(nil)
	_, err := c.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Client) itineraryKey(id string) string {
	return c.config.Prefix + itinerariesDir + id + objectSuffix
}

func (c *Client) versionsKey(id string) string {
	return c.config.Prefix + versionsDir + id + objectSuffix
}

// isNotFound reports whether err is a missing object. HEAD requests carry
// no body, so they report NotFound instead of NoSuchKey.
func isNotFound(err error) bool {
	var aerr awserr.Error
	if !errors.As(err, &aerr) {
		return false
	}
	return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
}
