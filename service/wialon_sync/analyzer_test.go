package wialon_sync

import (
	"fleetsync-service/service/meta"
	"fleetsync-service/service/models"
	"fleetsync-service/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAnalyzerTest(t *testing.T) (*testutil.TestDB, *testutil.TestDataFactory, *Analyzer) {
	tdb := testutil.NewTestDB()
	t.Cleanup(tdb.Close)
	return tdb, testutil.NewTestDataFactory(tdb.DB), NewAnalyzer()
}

func sessionDiscrepancies(t *testing.T, tdb *testutil.TestDB, sessionID string) []models.SyncDiscrepancy {
	var found []models.SyncDiscrepancy
	require.NoError(t, tdb.DB.Where("session_id = ?", sessionID).Find(&found).Error)
	return found
}

func TestAnalyzer_检测新客户(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("已有客户"))
	factory.CreateTempClient(session.ID, 1001, "已有客户")
	factory.CreateTempClient(session.ID, 2002, "新客户")

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscrepanciesFound)
	assert.Empty(t, result.PredicateErrors)

	found := sessionDiscrepancies(t, tdb, session.ID)
	require.Len(t, found, 1)
	assert.Equal(t, meta.DiscrepancyTypeNewClient, found[0].DiscrepancyType)
	assert.Equal(t, meta.DiscrepancyEntityClient, found[0].EntityType)
	assert.Equal(t, meta.SuggestedActionCreateClient, found[0].SuggestedAction)
	assert.Equal(t, meta.DiscrepancyStatusPending, found[0].Status)
}

func TestAnalyzer_检测新对象并解析归属(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	owner := factory.CreateClient(testutil.WithClientWialonID(1001))
	factory.CreateTempClient(session.ID, 1001, owner.Name)
	factory.CreateTempObject(session.ID, 5001, "新车辆", testutil.WithTempObjectOwner(1001))

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscrepanciesFound)

	found := sessionDiscrepancies(t, tdb, session.ID)
	require.Len(t, found, 1)

	// 归属解析到已知客户时升级差异类型，并建议直接挂到该客户
	assert.Equal(t, meta.DiscrepancyTypeNewObjectKnownClient, found[0].DiscrepancyType)
	assert.Equal(t, meta.SuggestedActionAssignToClient, found[0].SuggestedAction)
	require.NotNil(t, found[0].SuggestedClientID)
	assert.Equal(t, owner.ID, *found[0].SuggestedClientID)
}

func TestAnalyzer_检测新对象归属未知(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	// 归属账户9999在本地不存在，保持普通new_object
	factory.CreateTempObject(session.ID, 5001, "新车辆", testutil.WithTempObjectOwner(9999))

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscrepanciesFound)

	found := sessionDiscrepancies(t, tdb, session.ID)
	require.Len(t, found, 1)
	assert.Equal(t, meta.DiscrepancyTypeNewObject, found[0].DiscrepancyType)
	assert.Equal(t, meta.SuggestedActionCreateObject, found[0].SuggestedAction)
	assert.Nil(t, found[0].SuggestedClientID)
}

func TestAnalyzer_名称比较忽略大小写和空白(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("ООО  Транс Логистика"))
	factory.CreateTempClient(session.ID, 1001, "ооо транс  логистика ")

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)

	// 规范化后名称一致，不产生差异
	assert.Equal(t, 0, result.DiscrepanciesFound)
}

func TestAnalyzer_检测客户名称不一致(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	local := factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("旧名称"))
	factory.CreateTempClient(session.ID, 1001, "新名称")

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscrepanciesFound)

	found := sessionDiscrepancies(t, tdb, session.ID)
	require.Len(t, found, 1)
	assert.Equal(t, meta.DiscrepancyTypeClientNameChanged, found[0].DiscrepancyType)
	assert.Equal(t, "新名称", found[0].ExternalData["name"])
	assert.Equal(t, "旧名称", found[0].LocalData["name"])
	require.NotNil(t, found[0].SuggestedClientID)
	assert.Equal(t, local.ID, *found[0].SuggestedClientID)
}

func TestAnalyzer_检测对象名称不一致(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	factory.CreateWialonObject(testutil.WithObjectWialonID(5001), testutil.WithObjectName("车辆A"))
	factory.CreateTempObject(session.ID, 5001, "车辆B")

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscrepanciesFound)

	found := sessionDiscrepancies(t, tdb, session.ID)
	require.Len(t, found, 1)
	assert.Equal(t, meta.DiscrepancyTypeObjectNameChanged, found[0].DiscrepancyType)
	assert.Equal(t, meta.SuggestedActionUpdateObjectName, found[0].SuggestedAction)
}

func TestAnalyzer_检测归属不一致(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	rightOwner := factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("正确客户"))
	wrongOwner := factory.CreateClient(testutil.WithClientWialonID(1002), testutil.WithClientName("错误客户"))
	factory.CreateWialonObject(
		testutil.WithObjectWialonID(5001),
		testutil.WithObjectName("车辆A"),
		testutil.WithObjectClientID(wrongOwner.ID))
	factory.CreateTempClient(session.ID, 1001, "正确客户")
	factory.CreateTempClient(session.ID, 1002, "错误客户")
	factory.CreateTempObject(session.ID, 5001, "车辆A", testutil.WithTempObjectOwner(1001))

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DiscrepanciesFound)

	found := sessionDiscrepancies(t, tdb, session.ID)
	require.Len(t, found, 1)
	assert.Equal(t, meta.DiscrepancyTypeOwnerChanged, found[0].DiscrepancyType)
	assert.Equal(t, meta.SuggestedActionChangeOwner, found[0].SuggestedAction)
	require.NotNil(t, found[0].SuggestedClientID)
	assert.Equal(t, rightOwner.ID, *found[0].SuggestedClientID)
}

func TestAnalyzer_归属无法解析时静默跳过(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	factory.CreateWialonObject(testutil.WithObjectWialonID(5001), testutil.WithObjectName("车辆A"))
	// 外部归属账户9999在本地和暂存中都不存在
	factory.CreateTempObject(session.ID, 5001, "车辆A", testutil.WithTempObjectOwner(9999))

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DiscrepanciesFound)
}

func TestAnalyzer_归属缺失时不产生差异(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	factory.CreateWialonObject(testutil.WithObjectWialonID(5001), testutil.WithObjectName("车辆A"))
	factory.CreateTempObject(session.ID, 5001, "车辆A")

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DiscrepanciesFound)
}

func TestAnalyzer_同一对象可命中多条规则(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	owner := factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("客户A"))
	_ = owner
	factory.CreateWialonObject(testutil.WithObjectWialonID(5001), testutil.WithObjectName("旧名"))
	factory.CreateTempClient(session.ID, 1001, "客户A")
	factory.CreateTempObject(session.ID, 5001, "新名", testutil.WithTempObjectOwner(1001))

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)

	// 名称不一致 + 归属不一致，两条独立差异
	assert.Equal(t, 2, result.DiscrepanciesFound)

	found := sessionDiscrepancies(t, tdb, session.ID)
	types := make(map[string]bool)
	for _, d := range found {
		types[d.DiscrepancyType] = true
	}
	assert.True(t, types[meta.DiscrepancyTypeObjectNameChanged])
	assert.True(t, types[meta.DiscrepancyTypeOwnerChanged])
}

func TestAnalyzer_重复分析不做跨会话去重(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	first := factory.CreateSyncSession()
	factory.CreateTempClient(first.ID, 2002, "新客户")
	result1, err := analyzer.Analyze(tdb.DB, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result1.DiscrepanciesFound)

	// 本地数据未变，第二个会话再次产生同样的差异
	second := factory.CreateSyncSession()
	factory.CreateTempClient(second.ID, 2002, "新客户")
	result2, err := analyzer.Analyze(tdb.DB, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, result2.DiscrepanciesFound)

	var total int64
	require.NoError(t, tdb.DB.Model(&models.SyncDiscrepancy{}).Count(&total).Error)
	assert.Equal(t, int64(2), total)
}

func TestAnalyzer_空暂存不产生差异(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	session := factory.CreateSyncSession()
	factory.CreateClient(testutil.WithClientWialonID(1001))

	result, err := analyzer.Analyze(tdb.DB, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, result.DiscrepanciesFound)
	assert.Empty(t, result.PredicateErrors)
}

// permuteRules 生成规则切片的全部排列
func permuteRules(rules []predicate) [][]predicate {
	if len(rules) <= 1 {
		return [][]predicate{append([]predicate(nil), rules...)}
	}

	var result [][]predicate
	for i := range rules {
		rest := make([]predicate, 0, len(rules)-1)
		rest = append(rest, rules[:i]...)
		rest = append(rest, rules[i+1:]...)
		for _, tail := range permuteRules(rest) {
			result = append(result, append([]predicate{rules[i]}, tail...))
		}
	}
	return result
}

func TestAnalyzer_规则执行顺序不影响结果(t *testing.T) {
	tdb, factory, analyzer := setupAnalyzerTest(t)

	// 一份同时命中五条规则的数据集
	session := factory.CreateSyncSession()
	localClient := factory.CreateClient(testutil.WithClientWialonID(1001), testutil.WithClientName("旧客户名"))
	otherClient := factory.CreateClient(testutil.WithClientWialonID(1002), testutil.WithClientName("其他客户"))
	factory.CreateWialonObject(
		testutil.WithObjectWialonID(5001),
		testutil.WithObjectName("旧车名"),
		testutil.WithObjectClientID(otherClient.ID))
	_ = localClient
	factory.CreateTempClient(session.ID, 1001, "新客户名")
	factory.CreateTempClient(session.ID, 1002, "其他客户")
	factory.CreateTempClient(session.ID, 2002, "全新客户")
	factory.CreateTempObject(session.ID, 5001, "新车名", testutil.WithTempObjectOwner(1001))
	factory.CreateTempObject(session.ID, 6001, "全新车辆", testutil.WithTempObjectOwner(1002))

	input, err := analyzer.loadInput(tdb.DB, session.ID)
	require.NoError(t, err)

	collect := func(order []predicate) map[string]int {
		counts := make(map[string]int)
		for _, p := range order {
			for _, d := range p.fn(input) {
				counts[d.DiscrepancyType]++
			}
		}
		return counts
	}

	baseline := collect(analyzer.predicates())
	require.Equal(t, map[string]int{
		meta.DiscrepancyTypeNewClient:            1,
		meta.DiscrepancyTypeNewObjectKnownClient: 1,
		meta.DiscrepancyTypeClientNameChanged:    1,
		meta.DiscrepancyTypeObjectNameChanged:    1,
		meta.DiscrepancyTypeOwnerChanged:         1,
	}, baseline)

	for _, order := range permuteRules(analyzer.predicates()) {
		assert.Equal(t, baseline, collect(order))
	}
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "abc def", NormalizeName("  ABC   def "))
	assert.Equal(t, "камаз 5320", NormalizeName("КамАЗ 5320"))
	assert.Equal(t, "", NormalizeName("   "))
	assert.Equal(t, NormalizeName("Fleet  One"), NormalizeName("fleet one"))
}
