package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"

	"parking-gate-service/internal/domain/parking"
)

const (
	plateEntryIndex  = "plate_number-entry_time-index"
	openMarkerPrefix = "open#"
	// Fixed width UTC so that entry_time sorts lexicographically.
	dynamoTimeLayout = "2006-01-02T15:04:05.000000Z"
)

type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type plateLogItem struct {
	ID            string `dynamodbav:"id"`
	PlateNumber   string `dynamodbav:"plate_number"`
	PaymentStatus string `dynamodbav:"payment_status"`
	EntryTime     string `dynamodbav:"entry_time"`
	PaymentTime   string `dynamodbav:"payment_time,omitempty"`
	ExitTime      string `dynamodbav:"exit_time,omitempty"`
	ExitStatus    string `dynamodbav:"exit_status"`
	AmountCharged string `dynamodbav:"amount_charged,omitempty"`
}

// openMarkerItem exists while a plate has an open record. Its conditional
// creation is what makes OpenEntry atomic. It carries no plate_number
// attribute, so it stays out of the plate index.
type openMarkerItem struct {
	ID       string `dynamodbav:"id"`
	RecordID string `dynamodbav:"record_id"`
}

// DynamoLedger persists plate records in a single DynamoDB table.
//
// Table requirements:
//   - PK: id (string)
//   - GSI: plate_number-entry_time-index (PK: plate_number, SK: entry_time)
type DynamoLedger struct {
	ddb       DynamoAPI
	tableName string
	now       func() time.Time
}

func NewDynamoLedger(ddb DynamoAPI, tableName string) *DynamoLedger {
	return &DynamoLedger{ddb: ddb, tableName: tableName, now: time.Now}
}

// EnsureTable creates the ledger table when it does not exist yet. Intended
// for local DynamoDB; production tables are provisioned separately.
func (l *DynamoLedger) EnsureTable(ctx context.Context) error {
	_, err := l.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(l.tableName)})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return err
	}

	_, err = l.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(l.tableName),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("plate_number"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("entry_time"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(plateEntryIndex),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("plate_number"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("entry_time"), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	if err != nil {
		return fmt.Errorf("create table %s: %w", l.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(l.ddb)
	return waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(l.tableName)}, time.Minute)
}

func (l *DynamoLedger) stamp() time.Time {
	return l.now().UTC().Truncate(time.Microsecond)
}

func (l *DynamoLedger) OpenEntry(ctx context.Context, plate string) (parking.EntryReceipt, error) {
	rec := parking.PlateRecord{
		ID:            uuid.New(),
		PlateNumber:   plate,
		PaymentStatus: parking.PaymentUnpaid,
		EntryTime:     l.stamp(),
		ExitStatus:    parking.ExitNone,
	}

	markerAV, err := attributevalue.MarshalMap(openMarkerItem{ID: openMarkerPrefix + plate, RecordID: rec.ID.String()})
	if err != nil {
		return parking.EntryReceipt{}, err
	}
	recordAV, err := attributevalue.MarshalMap(toPlateLogItem(rec))
	if err != nil {
		return parking.EntryReceipt{}, err
	}

	_, err = l.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:                aws.String(l.tableName),
				Item:                     markerAV,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": "id"},
			}},
			{Put: &types.Put{
				TableName:                aws.String(l.tableName),
				Item:                     recordAV,
				ConditionExpression:      aws.String("attribute_not_exists(#id)"),
				ExpressionAttributeNames: map[string]string{"#id": "id"},
			}},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return parking.EntryReceipt{}, parking.ErrAlreadyOpen
		}
		return parking.EntryReceipt{}, err
	}

	return parking.EntryReceipt{RecordID: rec.ID, Plate: plate, EntryTime: rec.EntryTime}, nil
}

func (l *DynamoLedger) IsPaid(ctx context.Context, plate string) (bool, error) {
	latest, err := l.latest(ctx, plate)
	if err != nil {
		return false, err
	}
	return latest != nil && latest.IsPaid(), nil
}

func (l *DynamoLedger) MarkPaid(ctx context.Context, plate string, entryTime time.Time, amount decimal.Decimal) (time.Time, error) {
	rec, err := l.findByEntry(ctx, plate, entryTime)
	if err != nil {
		return time.Time{}, err
	}
	if rec == nil || rec.IsPaid() {
		return time.Time{}, parking.ErrNotFound
	}

	paidAt := l.stamp()
	_, err = l.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 recordKey(rec.ID.String()),
		UpdateExpression:    aws.String("SET payment_status = :paid, payment_time = :pt, amount_charged = :amt"),
		ConditionExpression: aws.String("payment_status = :unpaid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":paid":   &types.AttributeValueMemberS{Value: string(parking.PaymentPaid)},
			":unpaid": &types.AttributeValueMemberS{Value: string(parking.PaymentUnpaid)},
			":pt":     &types.AttributeValueMemberS{Value: formatDynamoTime(paidAt)},
			":amt":    &types.AttributeValueMemberS{Value: amount.String()},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return time.Time{}, parking.ErrNotFound
		}
		return time.Time{}, err
	}
	return paidAt, nil
}

func (l *DynamoLedger) RecordExit(ctx context.Context, plate string, status parking.ExitStatus) (parking.ExitReceipt, error) {
	switch status {
	case parking.ExitDenied:
		return l.recordDenied(ctx, plate)
	case parking.ExitNormal:
		return l.recordNormal(ctx, plate)
	}
	return parking.ExitReceipt{}, errUnsupportedExitStatus(status)
}

func (l *DynamoLedger) recordDenied(ctx context.Context, plate string) (parking.ExitReceipt, error) {
	open, err := l.openRecord(ctx, plate)
	if err != nil {
		return parking.ExitReceipt{}, err
	}
	if open == nil {
		return parking.ExitReceipt{}, parking.ErrNoEligibleRecord
	}
	if open.ExitStatus == parking.ExitDenied {
		return exitReceipt(open, true), nil
	}

	_, err = l.ddb.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 recordKey(open.ID.String()),
		UpdateExpression:    aws.String("SET exit_status = :denied"),
		ConditionExpression: aws.String("attribute_not_exists(exit_time) AND exit_status <> :denied"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":denied": &types.AttributeValueMemberS{Value: string(parking.ExitDenied)},
		},
	})
	if err != nil {
		if !isConditionFailure(err) {
			return parking.ExitReceipt{}, err
		}
		// Lost a race: either another DENIED landed first or the stay was
		// closed by a NORMAL exit. Report what the ledger holds now.
		current, err := l.openRecord(ctx, plate)
		if err != nil {
			return parking.ExitReceipt{}, err
		}
		if current == nil || current.ID != open.ID || current.ExitStatus != parking.ExitDenied {
			return parking.ExitReceipt{}, parking.ErrNoEligibleRecord
		}
		return exitReceipt(current, true), nil
	}

	open.ExitStatus = parking.ExitDenied
	return exitReceipt(open, false), nil
}

func (l *DynamoLedger) recordNormal(ctx context.Context, plate string) (parking.ExitReceipt, error) {
	open, err := l.openRecord(ctx, plate)
	if err != nil {
		return parking.ExitReceipt{}, err
	}

	if open == nil || !open.IsPaid() {
		latest, err := l.latest(ctx, plate)
		if err != nil {
			return parking.ExitReceipt{}, err
		}
		if latest != nil && !latest.IsOpen() && latest.ExitStatus == parking.ExitNormal {
			return exitReceipt(latest, true), nil
		}
		return parking.ExitReceipt{}, parking.ErrNoEligibleRecord
	}

	exitAt := l.stamp()
	_, err = l.ddb.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Update: &types.Update{
				TableName:           aws.String(l.tableName),
				Key:                 recordKey(open.ID.String()),
				UpdateExpression:    aws.String("SET exit_time = :et, exit_status = :normal"),
				ConditionExpression: aws.String("payment_status = :paid AND attribute_not_exists(exit_time)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":et":     &types.AttributeValueMemberS{Value: formatDynamoTime(exitAt)},
					":normal": &types.AttributeValueMemberS{Value: string(parking.ExitNormal)},
					":paid":   &types.AttributeValueMemberS{Value: string(parking.PaymentPaid)},
				},
			}},
			{Delete: &types.Delete{
				TableName:           aws.String(l.tableName),
				Key:                 recordKey(openMarkerPrefix + plate),
				ConditionExpression: aws.String("record_id = :rid"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":rid": &types.AttributeValueMemberS{Value: open.ID.String()},
				},
			}},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return parking.ExitReceipt{}, parking.ErrNoEligibleRecord
		}
		return parking.ExitReceipt{}, err
	}

	open.ExitTime = null.TimeFrom(exitAt)
	open.ExitStatus = parking.ExitNormal
	return exitReceipt(open, false), nil
}

func (l *DynamoLedger) LatestUnpaid(ctx context.Context, plate string) (parking.PlateRecord, error) {
	open, err := l.openRecord(ctx, plate)
	if err != nil {
		return parking.PlateRecord{}, err
	}
	if open != nil && !open.IsPaid() {
		return *open, nil
	}

	records, err := l.queryPlate(ctx, plate)
	if err != nil {
		return parking.PlateRecord{}, err
	}
	for _, r := range records {
		if !r.IsPaid() {
			return r, nil
		}
	}
	return parking.PlateRecord{}, parking.ErrNotFound
}

func (l *DynamoLedger) ListRecords(ctx context.Context, filter parking.RecordFilter) ([]parking.PlateRecord, error) {
	var records []parking.PlateRecord
	var err error
	if filter.Plate != nil {
		records, err = l.queryPlate(ctx, *filter.Plate)
	} else {
		records, err = l.scanRecords(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := make([]parking.PlateRecord, 0, len(records))
	for _, r := range records {
		if filter.Open != nil && r.IsOpen() != *filter.Open {
			continue
		}
		result = append(result, r)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].EntryTime.After(result[j].EntryTime)
	})

	offset, end := pageBounds(filter, len(result))
	return result[offset:end], nil
}

// openRecord resolves the open record through the marker with strongly
// consistent reads. The open record, when present, is also the latest one.
func (l *DynamoLedger) openRecord(ctx context.Context, plate string) (*parking.PlateRecord, error) {
	out, err := l.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.tableName),
		Key:            recordKey(openMarkerPrefix + plate),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Item) == 0 {
		return nil, nil
	}

	var marker openMarkerItem
	if err := attributevalue.UnmarshalMap(out.Item, &marker); err != nil {
		return nil, err
	}

	recOut, err := l.ddb.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(l.tableName),
		Key:            recordKey(marker.RecordID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if len(recOut.Item) == 0 {
		return nil, fmt.Errorf("open marker for %s points to missing record %s", plate, marker.RecordID)
	}

	var it plateLogItem
	if err := attributevalue.UnmarshalMap(recOut.Item, &it); err != nil {
		return nil, err
	}
	rec, err := fromPlateLogItem(it)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (l *DynamoLedger) latest(ctx context.Context, plate string) (*parking.PlateRecord, error) {
	open, err := l.openRecord(ctx, plate)
	if err != nil || open != nil {
		return open, err
	}
	records, err := l.queryPlate(ctx, plate)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func (l *DynamoLedger) findByEntry(ctx context.Context, plate string, entryTime time.Time) (*parking.PlateRecord, error) {
	open, err := l.openRecord(ctx, plate)
	if err != nil {
		return nil, err
	}
	if open != nil && open.EntryTime.Equal(entryTime) {
		return open, nil
	}

	out, err := l.ddb.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		IndexName:              aws.String(plateEntryIndex),
		KeyConditionExpression: aws.String("plate_number = :p AND entry_time = :t"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: plate},
			":t": &types.AttributeValueMemberS{Value: formatDynamoTime(entryTime)},
		},
	})
	if err != nil {
		return nil, err
	}
	for _, raw := range out.Items {
		var it plateLogItem
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, err
		}
		rec, err := fromPlateLogItem(it)
		if err != nil {
			return nil, err
		}
		if !rec.IsPaid() {
			return &rec, nil
		}
	}
	return nil, nil
}

// queryPlate returns every record of a plate, newest entry first.
func (l *DynamoLedger) queryPlate(ctx context.Context, plate string) ([]parking.PlateRecord, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(l.tableName),
		IndexName:              aws.String(plateEntryIndex),
		KeyConditionExpression: aws.String("plate_number = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": &types.AttributeValueMemberS{Value: plate},
		},
		ScanIndexForward: aws.Bool(false),
	}

	var records []parking.PlateRecord
	for {
		out, err := l.ddb.Query(ctx, input)
		if err != nil {
			return nil, err
		}
		batch, err := decodeRecords(out.Items)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func (l *DynamoLedger) scanRecords(ctx context.Context) ([]parking.PlateRecord, error) {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(l.tableName),
		FilterExpression: aws.String("attribute_exists(plate_number)"),
	}

	var records []parking.PlateRecord
	for {
		out, err := l.ddb.Scan(ctx, input)
		if err != nil {
			return nil, err
		}
		batch, err := decodeRecords(out.Items)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)
		if len(out.LastEvaluatedKey) == 0 {
			return records, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

func decodeRecords(items []map[string]types.AttributeValue) ([]parking.PlateRecord, error) {
	var raw []plateLogItem
	if err := attributevalue.UnmarshalListOfMaps(items, &raw); err != nil {
		return nil, err
	}
	records := make([]parking.PlateRecord, 0, len(raw))
	for _, it := range raw {
		rec, err := fromPlateLogItem(it)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func recordKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func isConditionFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

func formatDynamoTime(t time.Time) string {
	return t.UTC().Truncate(time.Microsecond).Format(dynamoTimeLayout)
}

func toPlateLogItem(r parking.PlateRecord) plateLogItem {
	it := plateLogItem{
		ID:            r.ID.String(),
		PlateNumber:   r.PlateNumber,
		PaymentStatus: string(r.PaymentStatus),
		EntryTime:     formatDynamoTime(r.EntryTime),
		ExitStatus:    string(r.ExitStatus),
	}
	if r.PaymentTime.Valid {
		it.PaymentTime = formatDynamoTime(r.PaymentTime.Time)
	}
	if r.ExitTime.Valid {
		it.ExitTime = formatDynamoTime(r.ExitTime.Time)
	}
	if r.AmountCharged.Valid {
		it.AmountCharged = r.AmountCharged.Decimal.String()
	}
	return it
}

func fromPlateLogItem(it plateLogItem) (parking.PlateRecord, error) {
	id, err := uuid.Parse(it.ID)
	if err != nil {
		return parking.PlateRecord{}, fmt.Errorf("invalid record id %q: %w", it.ID, err)
	}
	entry, err := time.Parse(dynamoTimeLayout, it.EntryTime)
	if err != nil {
		return parking.PlateRecord{}, fmt.Errorf("invalid entry_time %q: %w", it.EntryTime, err)
	}

	rec := parking.PlateRecord{
		ID:            id,
		PlateNumber:   it.PlateNumber,
		PaymentStatus: parking.PaymentStatus(it.PaymentStatus),
		EntryTime:     entry,
		ExitStatus:    parking.ExitStatus(it.ExitStatus),
	}
	if it.PaymentTime != "" {
		if t, err := time.Parse(dynamoTimeLayout, it.PaymentTime); err == nil {
			rec.PaymentTime = null.TimeFrom(t)
		}
	}
	if it.ExitTime != "" {
		if t, err := time.Parse(dynamoTimeLayout, it.ExitTime); err == nil {
			rec.ExitTime = null.TimeFrom(t)
		}
	}
	if it.AmountCharged != "" {
		amt, err := decimal.NewFromString(it.AmountCharged)
		if err != nil {
			return parking.PlateRecord{}, fmt.Errorf("invalid amount_charged %q: %w", it.AmountCharged, err)
		}
		rec.AmountCharged = decimal.NewNullDecimal(amt)
	}
	return rec, nil
}
