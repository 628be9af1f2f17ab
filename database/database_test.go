package database

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/lightlink-network/ll-bridge-relayer/database/models"
	"github.com/lightlink-network/ll-bridge-relayer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

const ns = "relayer.prepared_mints"

func testMint() *types.UnsignedMintTx {
	return &types.UnsignedMintTx{
		From:    common.HexToAddress("0x00000000000000000000000000000000000a11e7"),
		To:      common.HexToAddress("0x00000000000000000000000000000000000b1d6e"),
		Nonce:   4,
		ChainID: big.NewInt(1891),
		Call: types.MintCall{
			User:        common.HexToAddress("0x2222222222222222222222222222222222222222"),
			Token:       common.HexToAddress("0x3333333333333333333333333333333333333333"),
			Amount:      big.NewInt(1000),
			SourceNonce: types.Nonce{0x01},
		},
		Data: []byte{0xca, 0xfe},
		Gas: types.GasParams{
			GasLimit:             200000,
			MaxFeePerGas:         big.NewInt(30),
			MaxPriorityFeePerGas: big.NewInt(2),
		},
		SourceBlock: 120,
	}
}

func mintDoc(nonce string, block int64) bson.D {
	return bson.D{
		{Key: "source_nonce", Value: nonce},
		{Key: "user", Value: "0x2222222222222222222222222222222222222222"},
		{Key: "amount", Value: "1000"},
		{Key: "source_block", Value: block},
		{Key: "status", Value: "PREPARED"},
	}
}

func TestNewPreparedMint(t *testing.T) {
	now := time.Unix(1700000000, 0)
	m := models.NewPreparedMint(testMint(), now)

	assert.Equal(t, types.Nonce{0x01}.Hex(), m.SourceNonce)
	assert.Equal(t, "1000", m.Amount)
	assert.Equal(t, "1891", m.ChainID)
	assert.Equal(t, "0xcafe", m.Data)
	assert.Equal(t, "30", m.MaxFeePerGas)
	assert.Equal(t, "2", m.MaxPriorityFeePerGas)
	assert.Equal(t, "PREPARED", m.Status)
	assert.Equal(t, int64(1700000000), m.CreatedAt)

	tx := testMint()
	tx.Gas = types.GasParams{GasLimit: 200000}
	m = models.NewPreparedMint(tx, now)
	assert.Empty(t, m.MaxFeePerGas)
	assert.Empty(t, m.MaxPriorityFeePerGas)
}

func TestPreparedMints(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("create indexes", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		assert.NoError(mt, db.CreateIndexes(context.Background()))
	})

	mt.Run("emit inserts", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		require.NoError(mt, db.Emit(context.Background(), testMint()))
	})

	mt.Run("duplicate nonce is not an error", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		assert.NoError(mt, db.Emit(context.Background(), testMint()))
	})

	mt.Run("other write errors are returned", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    121,
			Message: "document failed validation",
		}))

		assert.Error(mt, db.Emit(context.Background(), testMint()))
	})

	mt.Run("get by nonce", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, mintDoc("0x01", 120)))

		mint, err := db.GetPreparedMintByNonce(context.Background(), "0x01")
		require.NoError(mt, err)
		assert.Equal(mt, "0x01", mint.SourceNonce)
		assert.Equal(mt, uint64(120), mint.SourceBlock)
	})

	mt.Run("get by nonce not found", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := db.GetPreparedMintByNonce(context.Background(), "0x02")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("list paginated", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, mintDoc("0x03", 130), mintDoc("0x02", 125)),
		)

		result, err := db.GetPreparedMints(context.Background(), models.Filter{Status: "PREPARED"}, 1, 2)
		require.NoError(mt, err)
		assert.Equal(mt, int64(3), result.TotalCount)
		assert.Equal(mt, int64(1), result.Page)
		assert.Equal(mt, int64(2), result.PageSize)

		mints, ok := result.Items.([]models.PreparedMint)
		require.True(mt, ok)
		require.Len(mt, mints, 2)
		assert.Equal(mt, "0x03", mints[0].SourceNonce)
	})

	mt.Run("list empty", func(mt *mtest.T) {
		db := newDatabase(mt.Client, "relayer", nil)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch),
		)

		result, err := db.GetPreparedMints(context.Background(), models.Filter{}, 1, 20)
		require.NoError(mt, err)
		assert.Equal(mt, int64(0), result.TotalCount)
		assert.Empty(mt, result.Items)
	})
}

func TestBuildFilter(t *testing.T) {
	assert.Empty(t, buildFilter(models.Filter{}))
	assert.Equal(t, bson.M{"user": "0xabc", "status": "PREPARED"}, buildFilter(models.Filter{User: "0xabc", Status: "PREPARED"}))
}
