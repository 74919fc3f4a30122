// Copyright (c) 2024 IoTeX Foundation
// This source code is provided 'as is' and no warranties are given as to title or non-infringement, merchantability
// or fitness for purpose and, to the extent permitted by law, all liability for your use of the code is disclaimed.
// This source code is governed by Apache License 2.0 that can be found in the LICENSE file.

package tracer

import (
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTracer(t *testing.T) {
	require := require.New(t)
	prv, err := NewProvider()
	require.NoError(err)
	require.Nil(prv)

	_, err = NewProvider(
		WithEndpoint("http://aa"),
		WithSamplingRatio("4a32"),
	)
	require.ErrorIs(err, strconv.ErrSyntax)

	prv, err = NewProvider(
		WithServiceName("sbt-test"),
		WithInstanceID("node-1"),
		WithEndpoint("http://aa"),
		WithSamplingRatio(".5"),
	)
	require.NoError(err)
	require.NotNil(prv)
	require.NoError(prv.Shutdown(context.Background()))
}

func TestNewSpan(t *testing.T) {
	require := require.New(t)
	ctx, span := NewSpan(context.Background(), "sbt_claim")
	defer span.End()
	require.Equal(span, SpanFromContext(ctx))
}
