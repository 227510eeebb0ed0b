package adminrole

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIAM struct {
	arn   string
	err   error
	asked []string
}

func (f *fakeIAM) GetRole(_ context.Context, in *iam.GetRoleInput, _ ...func(*iam.Options)) (*iam.GetRoleOutput, error) {
	f.asked = append(f.asked, aws.ToString(in.RoleName))
	if f.err != nil {
		return nil, f.err
	}
	return &iam.GetRoleOutput{Role: &types.Role{Arn: aws.String(f.arn)}}, nil
}

func TestStatic(t *testing.T) {
	role, err := Static("arn:aws:iam::123456789012:role/admin").Resolve(context.Background())
	require.NoError(t, err)
	v, ok := role.ARN.Value()
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::123456789012:role/admin", v)

	_, err = Static("admin").Resolve(context.Background())
	assert.ErrorContains(t, err, "not an ARN")
}

func TestIAMLookup_DefaultName(t *testing.T) {
	api := &fakeIAM{arn: "arn:aws:iam::123456789012:role/aws-service-role/rds.amazonaws.com/AWSServiceRoleForRDS"}
	l, err := NewIAMLookup(context.Background(), "", WithAPI(api))
	require.NoError(t, err)

	role, err := l.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultRoleName}, api.asked)
	v, _ := role.ARN.Value()
	assert.Equal(t, api.arn, v)
}

func TestIAMLookup_NotFound(t *testing.T) {
	api := &fakeIAM{err: &types.NoSuchEntityException{Message: aws.String("no role")}}
	l, err := NewIAMLookup(context.Background(), "custom-admin", WithAPI(api))
	require.NoError(t, err)

	_, err = l.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIAMLookup_OtherError(t *testing.T) {
	boom := errors.New("throttled")
	l, err := NewIAMLookup(context.Background(), "custom-admin", WithAPI(&fakeIAM{err: boom}))
	require.NoError(t, err)

	_, err = l.Resolve(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestIAMLookup_EmptyARN(t *testing.T) {
	l, err := NewIAMLookup(context.Background(), "x", WithAPI(&fakeIAM{}))
	require.NoError(t, err)
	_, err = l.Resolve(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestIAMLookup_WithAWSConfig(t *testing.T) {
	l, err := NewIAMLookup(context.Background(), "x", WithAWSConfig(aws.Config{Region: "us-east-1"}))
	require.NoError(t, err)
	assert.NotNil(t, l.api)
}
